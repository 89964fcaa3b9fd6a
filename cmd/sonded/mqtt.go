/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/Comcast/sonde/agent"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTNotices publishes agent state notices to an MQTT broker.
type MQTTNotices struct {
	Client  mqtt.Client
	Quiesce uint
	Topic   string
	QoS     byte
}

// NewMQTTNotices builds an MQTT publisher from mosquitto-style args.
//
// Call with nil args to get just the FlagSet (for usage messages).
func NewMQTTNotices(args []string) (*MQTTNotices, *flag.FlagSet) {
	var (
		fs = flag.NewFlagSet("mq", flag.ExitOnError)

		broker    = fs.String("h", "tcp://localhost", "Broker hostname")
		clientId  = fs.String("i", "", "Client id")
		port      = fs.Int("p", 1883, "Broker port")
		keepAlive = fs.Int("k", 10, "Keep-alive in seconds")
		userName  = fs.String("u", "", "Username")
		password  = fs.String("P", "", "Password")
		reconnect = fs.Bool("reconnect", false, "Automatically attempt to reconnect")
		clean     = fs.Bool("c", true, "Clean session")
		quiesce   = fs.Int("quiesce", 100, "Disconnection quiescence (in milliseconds)")
		insecure  = fs.Bool("insecure", false, "Skip broker cert checking")

		topic = fs.String("t", "sonde/notices", "Topic for notices")
		qos   = fs.Int("qos", 0, "QoS for notices")
	)

	if args == nil {
		return nil, fs
	}

	fs.Parse(args)

	mqtt.ERROR = log.New(os.Stderr, "mqtt.error", 0)

	opts := mqtt.NewClientOptions()

	opts.AddBroker(fmt.Sprintf("%s:%d", *broker, *port))
	opts.SetClientID(*clientId)
	opts.SetKeepAlive(time.Second * time.Duration(*keepAlive))

	opts.Username = *userName
	opts.Password = *password
	opts.AutoReconnect = *reconnect
	opts.CleanSession = *clean

	opts.SetTLSConfig(&tls.Config{
		InsecureSkipVerify: *insecure,
	})

	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		log.Printf("MQTT connection lost")
	}

	n := &MQTTNotices{
		Quiesce: uint(*quiesce),
		Topic:   *topic,
		QoS:     byte(*qos),
	}
	n.Client = mqtt.NewClient(opts)

	return n, fs
}

// Start creates the MQTT session.
func (n *MQTTNotices) Start(ctx context.Context) error {
	log.Printf("Attempting to connect to broker")
	if token := n.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("Connected to broker")
	return nil
}

// Publish sends one notice.
func (n *MQTTNotices) Publish(ctx context.Context, notice agent.Notice) error {
	js, err := json.Marshal(&notice)
	if err != nil {
		return err
	}
	token := n.Client.Publish(n.Topic, n.QoS, false, js)
	token.Wait()
	return token.Error()
}

// Stop terminates the MQTT session.
func (n *MQTTNotices) Stop(ctx context.Context) error {
	log.Printf("Disconnecting")
	n.Client.Disconnect(n.Quiesce)
	return nil
}
