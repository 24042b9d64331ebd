package main

import (
	"encoding/json"
	"log/slog"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// mqttBridge mirrors the HTTP command surface over MQTT. Commands arrive
// on <topic>/command, their outcomes are published to <topic>/result and
// matched event lines to <topic>/event.
type mqttBridge struct {
	logger *slog.Logger
	cli    mqtt.Client
	topic  string
}

// startMQTT connects the bridge if a broker is configured. Returns nil
// when cfg.MQTTBroker is empty.
func startMQTT(cfg *Config, logger *slog.Logger, client commander) (*mqttBridge, error) {
	if cfg.MQTTBroker == "" {
		return nil, nil
	}

	b := &mqttBridge{
		logger: logger.With("component", "mqtt"),
		topic:  cfg.MQTTTopic,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTTBroker)
	opts.SetClientID(cfg.MQTTClientID)
	if cfg.MQTTUsername != "" {
		opts.SetUsername(cfg.MQTTUsername)
		opts.SetPassword(cfg.MQTTPassword)
	}
	opts.SetAutoReconnect(true)
	opts.SetOrderMatters(false)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		b.logger.Warn("connection lost", "error", err)
	})
	opts.SetOnConnectHandler(func(c mqtt.Client) {
		b.logger.Info("connected", "broker", cfg.MQTTBroker)
		topic := b.topic + "/command"
		if t := c.Subscribe(topic, 1, func(_ mqtt.Client, msg mqtt.Message) {
			b.handleCommand(client, msg.Payload())
		}); t.Wait() && t.Error() != nil {
			b.logger.Error("subscribe failed", "topic", topic, "error", t.Error())
		}
	})

	b.cli = mqtt.NewClient(opts)
	if t := b.cli.Connect(); t.Wait() && t.Error() != nil {
		return nil, t.Error()
	}
	return b, nil
}

func (b *mqttBridge) handleCommand(client commander, payload []byte) {
	var req CommandRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		b.logger.Warn("bad command payload", "error", err)
		return
	}
	cmd, err := req.command()
	if err != nil {
		b.logger.Warn("bad command payload", "error", err)
		return
	}

	out, err := client.Send(cmd)
	if err != nil {
		b.publish(b.topic+"/result", CommandResponse{
			Status: "rejected",
			Error:  err.Error(),
		})
		return
	}
	b.publish(b.topic+"/result", outcomeResponse(out))
}

// publishEvent is registered as an event sink; it must not block the
// client's reader goroutine.
func (b *mqttBridge) publishEvent(msg EventMessage) {
	b.publish(b.topic+"/event", msg)
}

func (b *mqttBridge) publish(topic string, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		b.logger.Error("marshal failed", "topic", topic, "error", err)
		return
	}
	t := b.cli.Publish(topic, 1, false, payload)
	go func() {
		if t.Wait() && t.Error() != nil {
			b.logger.Warn("publish failed", "topic", topic, "error", t.Error())
		}
	}()
}

func (b *mqttBridge) stop() {
	b.cli.Disconnect(500)
}
