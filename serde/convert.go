package serde

// ToUntypedDeserializer adapts a typed Deserializer[T] to UntypedDeserializer.
func ToUntypedDeserializer[T any](d Deserializer[T]) UntypedDeserializer {
	return deserializerAdapter[T]{typed: d}
}

// ToUntypedSerializer adapts a typed Serializer[T] to UntypedSerializer.
func ToUntypedSerializer[T any](s Serializer[T]) UntypedSerializer {
	return serializerAdapter[T]{typed: s}
}

// ToUntyped adapts a typed Serde[T] to UntypedSerde. Equivalent to Erase.
func ToUntyped[T any](s Serde[T]) UntypedSerde {
	return Erase(s)
}

type deserializerAdapter[T any] struct {
	typed Deserializer[T]
}

func (d deserializerAdapter[T]) Deserialize(topic string, data []byte) (any, error) {
	return d.typed.Deserialize(topic, data)
}

type serializerAdapter[T any] struct {
	typed Serializer[T]
}

func (s serializerAdapter[T]) Serialize(topic string, value any) ([]byte, error) {
	typed, _ := value.(T)
	return s.typed.Serialize(topic, typed)
}
