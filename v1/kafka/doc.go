// Package kafka publishes and consumes Avro records on a Kafka topic, with
// every value framed by the ID of the schema it was written with.
//
// A KafkaClient wraps a segmentio/kafka-go writer or reader and a
// serde.AvroKeyValueSerde bound to the same topic.
//
// Basic Usage:
//
//	registry, _ := schema_registry.NewClient(schema_registry.Config{URL: "http://localhost:8081"})
//	kv, _ := serde.NewAvroKeyValueSerde(registry, serde.Config{Topic: "employees"})
//
//	producer, err := kafka.NewClient(kafka.Config{
//		Brokers: []string{"localhost:9092"},
//		Topic:   "employees",
//	}, kv)
//	if err != nil {
//		return err
//	}
//	defer producer.GracefulShutdown()
//
//	err = producer.Publish(ctx, kafka.Record{
//		Key:         "employee-1",
//		Value:       map[string]interface{}{"name": "Ada", "age": int32(36)},
//		ValueSchema: employeeSchema,
//	})
//	switch {
//	case serde.IsIncompatibleSchema(err):
//		// the registry refused the schema change, nothing was written
//	case err != nil:
//		// registry still unavailable after retries, or the broker failed
//	}
//
// Consuming:
//
//	consumer, _ := kafka.NewClient(kafka.Config{
//		Brokers:    []string{"localhost:9092"},
//		Topic:      "employees",
//		GroupID:    "payroll",
//		IsConsumer: true,
//	}, kv)
//
//	wg := &sync.WaitGroup{}
//	for msg := range consumer.Consume(ctx, wg) {
//		if err := msg.Err(); err != nil {
//			log.Warn("Undecodable record", err, nil)
//		} else {
//			process(msg.Value())
//		}
//		_ = msg.CommitMsg()
//	}
//	wg.Wait()
//
// Keys are raw bytes unless Config.AvroKeys is set, in which case they go
// through the key serde and its "<topic>-key" subject.
//
// Registry Outages:
//
// Publish retries serialization with exponential backoff while the schema
// registry is unreachable (Config.RegistryRetry). Incompatible schemas and
// values that do not match their schema fail immediately.
//
// Distributed Tracing:
//
// With WithTracer, Publish starts a producer span and writes its W3C trace
// context into the message headers; Consume continues that trace in a
// consumer span and exposes it through Message.Context.
//
// FX Module Integration:
//
//	app := fx.New(
//		logger.FXModule,
//		schema_registry.FXModule,
//		serde.FXModule,
//		kafka.FXModule,
//		// configs ...
//	)
//
// Configuration:
//
//	KAFKA_BROKERS=localhost:9092,localhost:9093
//	KAFKA_TOPIC=employees
//	KAFKA_GROUP_ID=payroll
//	KAFKA_AVRO_KEYS=false
//	KAFKA_REGISTRY_RETRY_MAX_RETRIES=5
//
// Thread Safety:
//
// Publish and CommitMsg are safe for concurrent use. GracefulShutdown may be
// called more than once.
package kafka
