package publish

// NewKafkaWithWriter returns a Kafka publisher writing with w.
func NewKafkaWithWriter(w messageWriter, topic string, args ...Options) *Kafka {
	return newKafka(w, topic, args...)
}

// NewMQTTWithClient returns a MQTT publisher sending with c.
func NewMQTTWithClient(c mqttClient, topic string, args ...Options) *MQTT {
	return newMQTT(c, topic, args...)
}
