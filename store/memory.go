package store

import "github.com/alphadose/haxmap"

// Memory keeps values in process memory.
type Memory struct {
	values *haxmap.Map[string, string]
}

func NewMemory() *Memory {
	return &Memory{values: haxmap.New[string, string]()}
}

func (m *Memory) Get(key string) (string, bool, error) {
	v, ok := m.values.Get(key)
	return v, ok, nil
}

func (m *Memory) Set(key, value string) error {
	m.values.Set(key, value)
	return nil
}

func (m *Memory) Remove(key string) error {
	m.values.Del(key)
	return nil
}
