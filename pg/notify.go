package pg

import (
	"time"
)

// Listen subscribes the connection to a notification channel.
func (c *Conn) Listen(channel string) error {
	_, err := c.Execute("LISTEN " + quoteIdent(channel))
	return err
}

// Unlisten removes a channel subscription.
func (c *Conn) Unlisten(channel string) error {
	_, err := c.Execute("UNLISTEN " + quoteIdent(channel))
	return err
}

// Notify sends a notification on a channel.
func (c *Conn) Notify(channel, payload string) error {
	_, err := c.Execute("NOTIFY " + quoteIdent(channel) + ", '" + escapeLiteral(payload) + "'")
	return err
}

// OnNotification installs a callback invoked for every notification as it
// is observed on the wire. With a callback installed, notifications are no
// longer queued for RecvNotification.
func (c *Conn) OnNotification(fn func(Notification)) {
	c.onNotify = fn
	if fn != nil {
		for _, n := range c.notifications {
			fn(n)
		}
		c.notifications = nil
	}
}

// RecvNotification returns the next pending notification. If none is
// queued it waits up to timeout for one to arrive on the socket; a zero
// timeout only drains the queue. Notifications arrive in server-emission
// order for this connection.
func (c *Conn) RecvNotification(timeout time.Duration) (Notification, bool, error) {
	if len(c.notifications) > 0 {
		n := c.notifications[0]
		c.notifications = c.notifications[1:]
		return n, true, nil
	}
	if timeout <= 0 {
		return Notification{}, false, nil
	}

	deadline := time.Now().Add(timeout)
	_ = c.netConn.SetReadDeadline(deadline)
	defer c.netConn.SetReadDeadline(time.Time{})

	for {
		typ, payload, err := c.recvMsg()
		if err != nil {
			if isTimeout(err) {
				return Notification{}, false, nil
			}
			return Notification{}, false, err
		}
		if typ == msgNotification {
			c.stashNotification(payload)
		}
		if len(c.notifications) > 0 {
			n := c.notifications[0]
			c.notifications = c.notifications[1:]
			return n, true, nil
		}
		// Anything else observed while idle is protocol noise
		// (ParameterStatus after SET, notices); keep waiting.
		if time.Now().After(deadline) {
			return Notification{}, false, nil
		}
	}
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	for err != nil {
		if t, ok := err.(timeouter); ok {
			return t.Timeout()
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}

func escapeLiteral(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' {
			out = append(out, '\'')
		}
		out = append(out, s[i])
	}
	return string(out)
}
