package live

import (
	"io"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

type options struct {
	dialer       *websocket.Dialer
	header       http.Header
	logger       logrus.FieldLogger
	onChange     func(Event)
	reconnect    bool
	maxAttempts  int
	initialDelay time.Duration
}

func defaultOptions() options {
	discard := logrus.New()
	discard.SetOutput(io.Discard)
	return options{
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		header:       http.Header{},
		logger:       discard,
		maxAttempts:  5,
		initialDelay: 500 * time.Millisecond,
	}
}

// Option configures a Store.
type Option func(*options)

// WithDialer replaces the websocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(o *options) {
		if d != nil {
			o.dialer = d
		}
	}
}

// WithHeader adds a header sent with the handshake request.
func WithHeader(key, value string) Option {
	return func(o *options) { o.header.Add(key, value) }
}

// WithLogger sets the logger. A nil logger keeps logs discarded.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithOnChange registers a callback invoked after every accepted merge and
// every connection transition. It runs outside the store's lock, on the
// goroutine that caused the change.
func WithOnChange(fn func(Event)) Option {
	return func(o *options) { o.onChange = fn }
}

// WithReconnect enables re-dialing after an unexpected drop, using
// exponential backoff starting at initialDelay.
func WithReconnect(maxAttempts int, initialDelay time.Duration) Option {
	return func(o *options) {
		o.reconnect = true
		if maxAttempts > 0 {
			o.maxAttempts = maxAttempts
		}
		if initialDelay > 0 {
			o.initialDelay = initialDelay
		}
	}
}
