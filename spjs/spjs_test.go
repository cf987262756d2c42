package spjs

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, data string) (interface{}, error) {
	var msg map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(data), &msg))
	return parseMessage([]byte(data), msg)
}

func TestParseMessage(t *testing.T) {
	v, err := parse(t, `{"P":"/dev/ttyACM0","D":"Ready\n"}`)
	require.NoError(t, err)
	assert.Equal(t, &DataFrame{Port: "/dev/ttyACM0", Data: "Ready\n"}, v)

	v, err = parse(t, `{"SerialPorts":[{"Name":"/dev/ttyACM0","IsOpen":true,"Baud":115200}]}`)
	require.NoError(t, err)
	assert.Equal(t, &SerialPortList{SerialPorts: []SerialPort{{Name: "/dev/ttyACM0", IsOpen: true, Baud: 115200}}}, v)

	v, err = parse(t, `{"Error":"port busy"}`)
	require.NoError(t, err)
	assert.Equal(t, &ErrorMessage{Error: "port busy"}, v)

	_, err = parse(t, `{"Version":"1.96"}`)
	assert.Error(t, err)
}

func TestSPJS_WriteAfterClose(t *testing.T) {
	sp := &SPJS{
		outgoing: make(chan message),
		done:     make(chan struct{}),
	}
	require.NoError(t, sp.Close())
	require.NoError(t, sp.Close())
	assert.Equal(t, ErrClosed, sp.WriteString("list"))
}
