package main

import (
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

// connectOptions describes one simulated vehicle's broker session. The will
// is published by the broker when the vehicle drops off without a clean
// disconnect.
type connectOptions struct {
	Broker    string
	ClientID  string
	WillTopic string
	Will      []byte
}

var mqttClientFactory = realMQTTClient

func realMQTTClient(o connectOptions) (paho.Client, error) {
	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectTimeout(10 * time.Second)
	if o.WillTopic != "" {
		opts.SetBinaryWill(o.WillTopic, o.Will, 1, false)
	}
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return cli, nil
}
