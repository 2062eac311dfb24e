/* Copyright 2018 Comcast Cable Communications Management, LLC
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

// Package mqtt couples a Service to an MQTT broker.
//
// Events arrive on <prefix>/trips/<trip>/events, either as a bare
// event or as {"event": ..., "role": ...}.  Every Published goes out
// on <prefix>/trips/<trip>/ops.
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/firstpersontravel/charter-sub005/core"
	"github.com/firstpersontravel/charter-sub005/service"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// NewClientOptions returns options with the keep-alive and
// reconnect settings we use.
func NewClientOptions(broker, clientID string, logger *zap.Logger) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	opts.SetKeepAlive(30 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.AutoReconnect = true
	opts.CleanSession = true
	opts.OnConnectionLost = func(client mqtt.Client, err error) {
		logger.Warn("MQTT connection lost", zap.String("broker", broker), zap.Error(err))
	}
	return opts
}

// Couplings is the bridge.
type Couplings struct {
	Client  mqtt.Client
	Service *service.Service
	Logger  *zap.Logger
	Prefix  string
	QoS     byte

	// InTimeout bounds the dispatch of one incoming message.
	InTimeout time.Duration

	// publish defaults to publishing with Client.
	publish func(topic string, payload []byte) error
}

func New(client mqtt.Client, svc *service.Service, prefix string) *Couplings {
	c := &Couplings{
		Client:    client,
		Service:   svc,
		Logger:    zap.NewNop(),
		Prefix:    strings.TrimSuffix(prefix, "/"),
		QoS:       1,
		InTimeout: 10 * time.Second,
	}
	c.publish = c.clientPublish
	return c
}

func (c *Couplings) clientPublish(topic string, payload []byte) error {
	token := c.Client.Publish(topic, c.QoS, false, payload)
	token.Wait()
	return token.Error()
}

// EventsTopic is the subscription for incoming events.
func (c *Couplings) EventsTopic() string {
	return c.Prefix + "/trips/+/events"
}

func (c *Couplings) OpsTopic(tripID string) string {
	return c.Prefix + "/trips/" + tripID + "/ops"
}

// TripFromTopic extracts the trip id from an events topic.
func (c *Couplings) TripFromTopic(topic string) (string, bool) {
	rest := strings.TrimPrefix(topic, c.Prefix+"/trips/")
	if rest == topic {
		return "", false
	}
	id := strings.TrimSuffix(rest, "/events")
	if id == rest || id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

// ParseEvent accepts a bare event or an envelope with "event" and
// "role".
func ParseEvent(payload []byte) (core.Params, string, error) {
	var m map[string]interface{}
	if err := json.Unmarshal(payload, &m); err != nil {
		return nil, "", fmt.Errorf("bad event payload: %w", err)
	}
	if ev, is := m["event"].(map[string]interface{}); is {
		role, _ := m["role"].(string)
		m = ev
		if core.Params(m).Type() == "" {
			return nil, "", fmt.Errorf("event without a type")
		}
		return core.Params(m), role, nil
	}
	if core.Params(m).Type() == "" {
		return nil, "", fmt.Errorf("event without a type")
	}
	return core.Params(m), "", nil
}

// Start connects and subscribes.
func (c *Couplings) Start(ctx context.Context) error {
	c.Logger.Info("connecting to broker")
	if token := c.Client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	topic := c.EventsTopic()
	handler := func(client mqtt.Client, msg mqtt.Message) {
		c.consume(ctx, msg.Topic(), msg.Payload())
	}
	if t := c.Client.Subscribe(topic, c.QoS, handler); t.Wait() && t.Error() != nil {
		return t.Error()
	}
	c.Logger.Info("subscribed", zap.String("topic", topic))
	return nil
}

// consume dispatches one incoming message.  Bad messages are logged
// and dropped.
func (c *Couplings) consume(ctx context.Context, topic string, payload []byte) {
	log := c.Logger.With(zap.String("topic", topic))
	tripID, ok := c.TripFromTopic(topic)
	if !ok {
		log.Warn("ignoring message on unexpected topic")
		return
	}
	event, role, err := ParseEvent(payload)
	if err != nil {
		log.Warn("ignoring message", zap.Error(err), zap.ByteString("payload", payload))
		return
	}
	ctx, cancel := context.WithTimeout(ctx, c.InTimeout)
	defer cancel()
	if _, err := c.Service.Dispatch(ctx, tripID, event, role); err != nil {
		log.Warn("dispatch", zap.String("trip", tripID), zap.Error(err))
	}
}

// Run publishes every Published until the context is done, then
// disconnects.
func (c *Couplings) Run(ctx context.Context) error {
	published, cancel := c.Service.Subscribe(128)
	defer cancel()
	defer func() {
		if c.Client != nil && c.Client.IsConnected() {
			c.Client.Disconnect(250)
		}
	}()
	return c.outLoop(ctx, published)
}

func (c *Couplings) outLoop(ctx context.Context, published <-chan *service.Published) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case p, ok := <-published:
			if !ok {
				return nil
			}
			js, err := json.Marshal(p)
			if err != nil {
				c.Logger.Error("marshal", zap.String("trip", p.TripID), zap.Error(err))
				continue
			}
			topic := c.OpsTopic(p.TripID)
			if err = c.publish(topic, js); err != nil {
				c.Logger.Error("publish", zap.String("topic", topic), zap.Error(err))
				continue
			}
			c.Logger.Debug("published", zap.String("topic", topic), zap.Int("ops", len(p.Ops)))
		}
	}
}
