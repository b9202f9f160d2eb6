package udp

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"ubxrx/internal/gnss"
)

// Datagram is one decoded record on the wire. Exactly one of the record
// fields is set, matching Type.
type Datagram struct {
	Type  string             `json:"type"`
	AtUTC string             `json:"at_utc"`
	Fix   *gnss.Fix          `json:"fix,omitempty"`
	DOP   *gnss.DOP          `json:"dop,omitempty"`
	HW    *gnss.HardwareInfo `json:"hw,omitempty"`
}

const (
	TypeNavPVT = "nav_pvt"
	TypeNavDOP = "nav_dop"
	TypeMonHW  = "mon_hw"
)

// Datagrams encodes every record in u, NAV-PVT first.
func Datagrams(u gnss.Update) ([][]byte, error) {
	at := u.At.UTC().Format(time.RFC3339Nano)
	var out [][]byte
	add := func(d Datagram) error {
		b, err := json.Marshal(d)
		if err != nil {
			return err
		}
		out = append(out, b)
		return nil
	}
	if u.NavPVT != nil {
		if err := add(Datagram{Type: TypeNavPVT, AtUTC: at, Fix: gnss.FixFrom(*u.NavPVT)}); err != nil {
			return nil, err
		}
	}
	if u.NavDOP != nil {
		if err := add(Datagram{Type: TypeNavDOP, AtUTC: at, DOP: gnss.DOPFrom(*u.NavDOP)}); err != nil {
			return nil, err
		}
	}
	if u.MonHW != nil {
		if err := add(Datagram{Type: TypeMonHW, AtUTC: at, HW: gnss.HardwareFrom(*u.MonHW)}); err != nil {
			return nil, err
		}
	}
	return out, nil
}

type sender interface {
	Send(payload []byte) error
}

// Publisher forwards service updates to a sender. Send failures are
// logged at most once per second.
type Publisher struct {
	out    sender
	log    *zap.Logger
	warn   *rate.Limiter
	onSent func(at time.Time, n int)
}

func NewPublisher(out sender, log *zap.Logger, onSent func(at time.Time, n int)) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{out: out, log: log, warn: rate.NewLimiter(rate.Every(time.Second), 1), onSent: onSent}
}

// Publish is suitable for gnss.Service.Subscribe.
func (p *Publisher) Publish(u gnss.Update) {
	msgs, err := Datagrams(u)
	if err != nil {
		p.log.Error("udp encode failed", zap.Error(err))
		return
	}
	sent := 0
	for _, m := range msgs {
		if err := p.out.Send(m); err != nil {
			if p.warn.Allow() {
				p.log.Warn("udp send failed", zap.Error(err))
			}
			continue
		}
		sent++
	}
	if sent > 0 && p.onSent != nil {
		p.onSent(u.At, sent)
	}
}
