package changefeed

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
)

// Publisher receives decoded events
type Publisher interface {
	Publish(ev Event)
	PublishAll(ev Event)
}

// NotificationConn is the subset of *pgx.Conn the listener needs
type NotificationConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	WaitForNotification(ctx context.Context) (*pgconn.Notification, error)
	Close(ctx context.Context) error
}

type ConnectFunc func(ctx context.Context) (NotificationConn, error)

// PgxConnect dials a dedicated connection outside the gorm pool
func PgxConnect(dsn string) ConnectFunc {
	return func(ctx context.Context) (NotificationConn, error) {
		conn, err := pgx.Connect(ctx, dsn)
		if err != nil {
			return nil, err
		}
		return conn, nil
	}
}

type ListenerConfig struct {
	MinReconnect time.Duration
	MaxReconnect time.Duration
}

// Listener holds one LISTEN connection per process and republishes every
// notification on the channel.
type Listener struct {
	connect   ConnectFunc
	publisher Publisher
	log       *logrus.Logger
	cfg       ListenerConfig
}

func NewListener(connect ConnectFunc, publisher Publisher, log *logrus.Logger, cfg ListenerConfig) *Listener {
	if cfg.MinReconnect <= 0 {
		cfg.MinReconnect = time.Second
	}
	if cfg.MaxReconnect < cfg.MinReconnect {
		cfg.MaxReconnect = cfg.MinReconnect
	}
	return &Listener{connect: connect, publisher: publisher, log: log, cfg: cfg}
}

// Run blocks until ctx is cancelled, reconnecting with capped exponential
// backoff whenever the connection drops.
func (l *Listener) Run(ctx context.Context) error {
	backoff := l.cfg.MinReconnect
	connectedBefore := false

	for {
		err := l.listen(ctx, func() {
			backoff = l.cfg.MinReconnect
			if connectedBefore {
				l.publisher.PublishAll(FeedResumed{})
			}
			connectedBefore = true
		})
		if ctx.Err() != nil {
			return nil
		}

		l.log.Warnf("Change feed disconnected, retrying in %s: %+v", backoff, err)
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > l.cfg.MaxReconnect {
			backoff = l.cfg.MaxReconnect
		}
	}
}

func (l *Listener) listen(ctx context.Context, onListening func()) error {
	conn, err := l.connect(ctx)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		conn.Close(closeCtx)
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{Channel}.Sanitize()); err != nil {
		return err
	}
	l.log.Infof("Listening for changes on channel %s", Channel)
	onListening()

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			return err
		}

		ev, err := Decode(n.Payload)
		if err != nil {
			if !errors.Is(err, ErrIrrelevant) {
				l.log.Warnf("Dropping change notification: %+v", err)
			}
			continue
		}
		l.publisher.Publish(ev)
	}
}
