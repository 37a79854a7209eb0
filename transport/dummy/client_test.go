package dummy

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMockClient(t *testing.T) {
	t.Run("no looping", func(t *testing.T) {
		slices := [][]byte{
			[]byte("Hello"), []byte("world!"),
		}
		client := NewMockClient(slices...)
		buff := make([]byte, 64)

		for _, slice := range slices {
			n, err := client.Read(buff)
			require.NoError(t, err)
			require.Equal(t, string(slice), string(buff[:n]))
		}

		_, err := client.Read(buff)
		require.ErrorIs(t, err, io.EOF)
	})

	t.Run("looped slices", func(t *testing.T) {
		slices := [][]byte{
			[]byte("Hello"), []byte("world"), []byte("!"),
		}
		client := NewMockClient(slices...).LoopReads()
		buff := make([]byte, 64)

		for i := 0; i < len(slices)*2; i++ {
			n, err := client.Read(buff)
			require.NoError(t, err)
			require.Equal(t, string(slices[i%len(slices)]), string(buff[:n]))
		}
	})

	t.Run("short buffer", func(t *testing.T) {
		client := NewMockClient([]byte("Hello"))
		buff := make([]byte, 3)

		n, err := client.Read(buff)
		require.NoError(t, err)
		require.Equal(t, "Hel", string(buff[:n]))
		n, err = client.Read(buff)
		require.NoError(t, err)
		require.Equal(t, "lo", string(buff[:n]))
	})

	t.Run("journaling", func(t *testing.T) {
		client := NewMockClient()
		_, _ = client.Write([]byte("hello "))
		_, _ = client.Write([]byte("world"))
		require.Equal(t, "hello world", client.Written())

		require.NoError(t, client.Close())
		_, err := client.Write([]byte("!"))
		require.Error(t, err)
	})
}
