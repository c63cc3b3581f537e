package natsx

import (
	"cmp"
	"errors"
	"os"

	"github.com/nats-io/nats.go"
)

// ClientName identifies codelens connections on the server.
const ClientName = "codelens"

// NewClient connects to the NATS server at url, falling back to the NATS_URL
// environment variable and then to nats.DefaultURL. Without explicit options
// the connection is named and compressed.
func NewClient(url string, opts ...nats.Option) (*nats.Conn, error) {
	if len(opts) == 0 {
		opts = append(opts, nats.Name(ClientName), nats.Compression(true))
	}
	return nats.Connect(cmp.Or(url, os.Getenv("NATS_URL"), nats.DefaultURL), opts...)
}

// KeyValue opens the JetStream key-value bucket, creating it when it does
// not exist yet.
func KeyValue(nc *nats.Conn, bucket string) (nats.KeyValue, error) {
	js, err := nc.JetStream()
	if err != nil {
		return nil, err
	}
	kv, err := js.KeyValue(bucket)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, nats.ErrBucketNotFound) {
		return nil, err
	}
	return js.CreateKeyValue(&nats.KeyValueConfig{
		Bucket:      bucket,
		Description: "codelens settings and conversation snapshots",
		History:     1,
	})
}
