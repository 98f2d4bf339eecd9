package label

import (
	"log"
	"strconv"
	"strings"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/relabs-tech/gas_datalogger/internal/reading"
	"github.com/relabs-tech/gas_datalogger/internal/status"
)

// MQTT follows the label published on a topic. Payloads are decimal integers;
// anything else is logged and ignored.
type MQTT struct {
	mu      sync.RWMutex
	current reading.Label
	client  mqtt.Client
}

// NewMQTT connects to broker and subscribes to topic. Until the first message
// arrives the label is initial.
func NewMQTT(broker, clientID, topic string, initial reading.Label) (*MQTT, error) {
	m := &MQTT{current: initial}

	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true)
	// Resubscribe after every reconnect; the broker forgets the subscription.
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		token := c.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
			m.handle(msg.Payload())
		})
		token.Wait()
		if token.Error() != nil {
			log.Printf("label: subscribe %s: %v", topic, token.Error())
			return
		}
		log.Printf("label: subscribed to %s", topic)
	})

	m.client = mqtt.NewClient(opts)
	if token := m.client.Connect(); token.Wait() && token.Error() != nil {
		return nil, status.Wrap(status.LabelSourceError, "connect %s: %v", broker, token.Error())
	}
	log.Printf("label: connected to MQTT broker at %s", broker)
	return m, nil
}

func (m *MQTT) handle(payload []byte) {
	v, err := strconv.Atoi(strings.TrimSpace(string(payload)))
	if err != nil {
		log.Printf("label: ignoring payload %q: %v", payload, err)
		return
	}
	m.mu.Lock()
	m.current = reading.Label(v)
	m.mu.Unlock()
}

func (m *MQTT) Label() reading.Label {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Close disconnects from the broker.
func (m *MQTT) Close() {
	if m.client != nil {
		m.client.Disconnect(250)
	}
}
