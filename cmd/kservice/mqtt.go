package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTCouplings connects a Service to an MQTT broker.  Ops arrive on
// the subscription topics, and responses are published to the op's
// reply topic or the default outbound topic.
type MQTTCouplings struct {
	Client               mqtt.Client
	Quiesce              uint
	SubTopics            string
	DefaultOutboundTopic string
	QoS                  byte

	s *Service
}

// mqttOp is what arrives on a subscription topic.  ReplyTo is the
// topic for the response.
type mqttOp struct {
	ReplyTo string `json:"replyTo,omitempty"`
}

// NewMQTTCouplings parses mosquitto_sub-style args.  When args is
// nil, just returns the flag set (for usage).
func NewMQTTCouplings(ctx context.Context, s *Service, args []string) (*MQTTCouplings, *flag.FlagSet, error) {
	var (
		fs = flag.NewFlagSet("mq", flag.ContinueOnError)

		broker    = fs.String("h", "tcp://localhost", "Broker hostname")
		clientId  = fs.String("i", "kservice", "Client id")
		port      = fs.Int("p", 1883, "Broker port")
		keepAlive = fs.Int("k", 10, "Keep-alive in seconds")
		userName  = fs.String("u", "", "Username")
		password  = fs.String("P", "", "Password")
		reconnect = fs.Bool("reconnect", false, "Automatically attempt to reconnect")
		clean     = fs.Bool("c", true, "Clean session")
		quiesce   = fs.Int("quiesce", 100, "Disconnection quiescence (in milliseconds)")
		qos       = fs.Int("q", 0, "QoS for responses")

		certFilename = fs.String("cert", "", "Optional cert filename")
		keyFilename  = fs.String("key", "", "Optional key filename")
		insecure     = fs.Bool("insecure", false, "Skip broker cert checking")

		subTopics            = fs.String("t", "kexec/ops", "subscription topic(s)")
		defaultOutboundTopic = fs.String("def-outbound-topic", "kexec/results", "Default out-bound message topic")
	)

	if args == nil {
		return nil, fs, nil
	}

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}

	mqtt.ERROR = log.New(os.Stderr, "mqtt.error", 0)

	opts := mqtt.NewClientOptions()

	opts.AddBroker(fmt.Sprintf("%s:%d", *broker, *port))
	opts.SetClientID(*clientId)
	opts.SetKeepAlive(time.Second * time.Duration(*keepAlive))

	opts.Username = *userName
	opts.Password = *password
	opts.AutoReconnect = *reconnect
	opts.CleanSession = *clean

	tlsConf := &tls.Config{
		InsecureSkipVerify: *insecure,
	}
	if *keyFilename != "" {
		cert, err := tls.LoadX509KeyPair(*certFilename, *keyFilename)
		if err != nil {
			return nil, fs, err
		}
		tlsConf.Certificates = []tls.Certificate{cert}
	}
	opts.SetTLSConfig(tlsConf)

	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Printf("MQTT connection lost")
	}

	c := &MQTTCouplings{
		Quiesce:              uint(*quiesce),
		SubTopics:            *subTopics,
		DefaultOutboundTopic: *defaultOutboundTopic,
		QoS:                  byte(*qos),
		s:                    s,
	}

	opts.DefaultPublishHandler = func(client mqtt.Client, msg mqtt.Message) {
		go c.inHandler(ctx, client, msg)
	}

	c.Client = mqtt.NewClient(opts)

	return c, fs, nil
}

// handle processes an incoming payload and returns the topic and
// payload for the response.
func (c *MQTTCouplings) handle(ctx context.Context, topic string, payload []byte) (string, []byte) {
	log.Printf("incoming: %s %s\n", topic, payload)

	// Process reports bad JSON.
	var reply mqttOp
	json.Unmarshal(payload, &reply)
	to := c.DefaultOutboundTopic
	if reply.ReplyTo != "" {
		to = reply.ReplyTo
	}

	op := c.s.Process(ctx, payload)
	js, err := json.Marshal(op)
	if err != nil {
		js = []byte(fmt.Sprintf(`{"err":%q}`, err.Error()))
	}
	return to, js
}

// inHandler is a Paho publish handler, which is used to handle
// messages send to us from the MQTT broker due to our subscriptions.
func (c *MQTTCouplings) inHandler(ctx context.Context, client mqtt.Client, msg mqtt.Message) {
	to, js := c.handle(ctx, msg.Topic(), msg.Payload())
	if t := client.Publish(to, c.QoS, false, js); t.Wait() && t.Error() != nil {
		log.Printf("MQTT publish error %s", t.Error())
	}
}

// Start creates the MQTT session and subscribes.
func (c *MQTTCouplings) Start(ctx context.Context) error {
	log.Printf("Attempting to connected to broker")
	if token := c.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("Connected to broker")

	for _, topic := range strings.Split(c.SubTopics, ",") {
		topic = strings.TrimSpace(topic)
		if topic == "" {
			continue
		}
		log.Printf("Subscribing to %s", topic)
		if t := c.Client.Subscribe(topic, c.QoS, nil); t.Wait() && t.Error() != nil {
			return t.Error()
		}
	}

	go func() {
		<-ctx.Done()
		c.Client.Disconnect(c.Quiesce)
	}()

	return nil
}
