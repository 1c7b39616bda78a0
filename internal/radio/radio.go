// Package radio defines the transceiver capability the harness streams
// through. Hardware bindings attach by registering an opener for their
// address scheme; the package ships a simulated loopback driver under the
// "sim" scheme so the full TX/RX path runs without hardware.
package radio

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// RxErrorCode classifies the outcome of one Recv call.
type RxErrorCode int

const (
	RxErrorNone     RxErrorCode = iota // samples delivered
	RxErrorTimeout                     // no samples within the timeout
	RxErrorOverflow                    // the device dropped samples
)

func (c RxErrorCode) String() string {
	switch c {
	case RxErrorNone:
		return "none"
	case RxErrorTimeout:
		return "timeout"
	case RxErrorOverflow:
		return "overflow"
	default:
		return fmt.Sprintf("unknown(%d)", int(c))
	}
}

// TXMetadata carries per-chunk burst framing flags.
type TXMetadata struct {
	StartOfBurst bool // first chunk of a transmission
	EndOfBurst   bool // final (zero-length) flush chunk
}

// RXMetadata reports per-chunk receive status.
type RXMetadata struct {
	ErrorCode RxErrorCode
}

// TxStream is a transmit streaming handle.
type TxStream interface {
	// Send pushes chunk to the transmit path and returns the number of
	// samples accepted. A zero-length chunk with EndOfBurst set flushes
	// the path.
	Send(chunk []complex64, md TXMetadata) (int, error)
}

// RxStream is a receive streaming handle.
type RxStream interface {
	// Recv fills buf with up to len(buf) samples, waiting at most timeout.
	// The returned count may be less than len(buf); md.ErrorCode reports
	// timeout and overflow conditions.
	Recv(buf []complex64, timeout time.Duration) (int, RXMetadata, error)
}

// Device is an opened transceiver.
type Device interface {
	SetTxRate(rate float64) error
	SetRxRate(rate float64) error
	SetTxFreq(freq float64, channel int) error
	SetRxFreq(freq float64, channel int) error
	SetTxGain(gain float64, channel int) error
	SetRxGain(gain float64, channel int) error

	TxAntennas(channel int) []string
	RxAntennas(channel int) []string
	SetTxAntenna(name string, channel int) error
	SetRxAntenna(name string, channel int) error

	GetTxStream(channel int) (TxStream, error)
	GetRxStream(channel int) (RxStream, error)

	Close() error
}

// OpenFunc opens a device given the address options (everything after the
// "scheme:" prefix).
type OpenFunc func(options string) (Device, error)

var (
	driversMu sync.RWMutex
	drivers   = make(map[string]OpenFunc)
)

// Register makes a device driver available under the given address scheme.
// It panics on a duplicate scheme, mirroring database/sql.
func Register(scheme string, open OpenFunc) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if _, dup := drivers[scheme]; dup {
		panic("radio: Register called twice for scheme " + scheme)
	}
	drivers[scheme] = open
}

// Schemes lists the registered driver schemes.
func Schemes() []string {
	driversMu.RLock()
	defer driversMu.RUnlock()
	out := make([]string, 0, len(drivers))
	for s := range drivers {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// Open opens the device named by address, e.g. "sim:delay=500,atten=20".
// The part before the first colon selects the driver.
func Open(address string) (Device, error) {
	scheme, options := address, ""
	if i := strings.IndexByte(address, ':'); i >= 0 {
		scheme, options = address[:i], address[i+1:]
	}

	driversMu.RLock()
	open, ok := drivers[scheme]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no radio driver for scheme %q (registered: %s)",
			scheme, strings.Join(Schemes(), ", "))
	}
	return open(options)
}
