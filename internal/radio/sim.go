package radio

import (
	"fmt"
	"math"
	"math/rand"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// simDevice models a cabled TX->attenuator->RX loopback: transmitted
// samples reappear on the receive side after a fixed delay, scaled down by
// the attenuation, with additive gaussian noise. It stands in for real
// hardware in tests and bench-less runs.
type simDevice struct {
	delaySamples int
	attenLin     float64
	noiseSigma   float64

	mu        sync.Mutex
	txRate    float64
	rxRate    float64
	txAntenna string
	rxAntenna string

	link       chan []complex64
	overflowed atomic.Bool
	firstSend  atomic.Bool

	rng     *rand.Rand
	pending []complex64
}

const simMaxChannel = 1

var (
	simTxAntennas = []string{"TX/RX", "CAL"}
	simRxAntennas = []string{"TX/RX", "RX2", "CAL"}
)

func init() {
	Register("sim", openSim)
}

// openSim builds a simulated device from comma-separated key=value options:
// delay (samples), atten (dB), noise (per-component sigma), cap (link
// capacity in chunks).
func openSim(options string) (Device, error) {
	d := &simDevice{
		attenLin:  1.0,
		txAntenna: "TX/RX",
		rxAntenna: "RX2",
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	capacity := 1024

	if options != "" {
		for _, opt := range strings.Split(options, ",") {
			key, value, ok := strings.Cut(opt, "=")
			if !ok {
				return nil, fmt.Errorf("malformed sim option %q", opt)
			}
			switch key {
			case "delay":
				n, err := strconv.Atoi(value)
				if err != nil || n < 0 {
					return nil, fmt.Errorf("invalid sim delay %q", value)
				}
				d.delaySamples = n
			case "atten":
				db, err := strconv.ParseFloat(value, 64)
				if err != nil {
					return nil, fmt.Errorf("invalid sim attenuation %q", value)
				}
				d.attenLin = math.Pow(10, -db/20)
			case "noise":
				sigma, err := strconv.ParseFloat(value, 64)
				if err != nil || sigma < 0 {
					return nil, fmt.Errorf("invalid sim noise %q", value)
				}
				d.noiseSigma = sigma
			case "cap":
				n, err := strconv.Atoi(value)
				if err != nil || n < 1 {
					return nil, fmt.Errorf("invalid sim link capacity %q", value)
				}
				capacity = n
			case "seed":
				n, err := strconv.ParseInt(value, 10, 64)
				if err != nil {
					return nil, fmt.Errorf("invalid sim seed %q", value)
				}
				d.rng = rand.New(rand.NewSource(n))
			default:
				return nil, fmt.Errorf("unknown sim option %q", key)
			}
		}
	}

	d.link = make(chan []complex64, capacity)
	return d, nil
}

func checkChannel(channel int) error {
	if channel < 0 || channel > simMaxChannel {
		return fmt.Errorf("channel %d out of range (0..%d)", channel, simMaxChannel)
	}
	return nil
}

func (d *simDevice) SetTxRate(rate float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.txRate = rate
	return nil
}

func (d *simDevice) SetRxRate(rate float64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rxRate = rate
	return nil
}

func (d *simDevice) SetTxFreq(freq float64, channel int) error { return checkChannel(channel) }
func (d *simDevice) SetRxFreq(freq float64, channel int) error { return checkChannel(channel) }
func (d *simDevice) SetTxGain(gain float64, channel int) error { return checkChannel(channel) }
func (d *simDevice) SetRxGain(gain float64, channel int) error { return checkChannel(channel) }

func (d *simDevice) TxAntennas(channel int) []string { return simTxAntennas }
func (d *simDevice) RxAntennas(channel int) []string { return simRxAntennas }

func (d *simDevice) SetTxAntenna(name string, channel int) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	for _, a := range simTxAntennas {
		if a == name {
			d.mu.Lock()
			d.txAntenna = name
			d.mu.Unlock()
			return nil
		}
	}
	return fmt.Errorf("unknown TX antenna %q (available: %s)", name, strings.Join(simTxAntennas, ", "))
}

func (d *simDevice) SetRxAntenna(name string, channel int) error {
	if err := checkChannel(channel); err != nil {
		return err
	}
	for _, a := range simRxAntennas {
		if a == name {
			d.mu.Lock()
			d.rxAntenna = name
			d.mu.Unlock()
			return nil
		}
	}
	return fmt.Errorf("unknown RX antenna %q (available: %s)", name, strings.Join(simRxAntennas, ", "))
}

func (d *simDevice) GetTxStream(channel int) (TxStream, error) {
	if err := checkChannel(channel); err != nil {
		return nil, err
	}
	return (*simTxStream)(d), nil
}

func (d *simDevice) GetRxStream(channel int) (RxStream, error) {
	if err := checkChannel(channel); err != nil {
		return nil, err
	}
	return (*simRxStream)(d), nil
}

func (d *simDevice) Close() error {
	return nil
}

type simTxStream simDevice

// Send attenuates the chunk onto the loopback link. The propagation delay
// is modeled as a run of zero samples ahead of the first chunk. A full
// link drops the chunk and flags an overflow for the receive side.
func (t *simTxStream) Send(chunk []complex64, md TXMetadata) (int, error) {
	d := (*simDevice)(t)
	if len(chunk) == 0 {
		// End-of-burst flush carries no samples.
		return 0, nil
	}

	if d.firstSend.CompareAndSwap(false, true) && d.delaySamples > 0 {
		d.push(make([]complex64, d.delaySamples))
	}

	out := make([]complex64, len(chunk))
	atten := complex(float32(d.attenLin), 0)
	for i, s := range chunk {
		out[i] = s * atten
	}
	d.push(out)
	return len(chunk), nil
}

func (d *simDevice) push(chunk []complex64) {
	select {
	case d.link <- chunk:
	default:
		d.overflowed.Store(true)
	}
}

type simRxStream simDevice

// Recv delivers looped-back samples with additive noise, waiting at most
// timeout for data. An overflow on the link is reported once, with no
// samples, before delivery resumes.
func (r *simRxStream) Recv(buf []complex64, timeout time.Duration) (int, RXMetadata, error) {
	d := (*simDevice)(r)
	if d.overflowed.CompareAndSwap(true, false) {
		return 0, RXMetadata{ErrorCode: RxErrorOverflow}, nil
	}

	if len(d.pending) == 0 {
		select {
		case chunk := <-d.link:
			d.pending = chunk
		case <-time.After(timeout):
			return 0, RXMetadata{ErrorCode: RxErrorTimeout}, nil
		}
	}

	n := copy(buf, d.pending)
	d.pending = d.pending[n:]
	if d.noiseSigma > 0 {
		for i := 0; i < n; i++ {
			buf[i] += complex(
				float32(d.rng.NormFloat64()*d.noiseSigma),
				float32(d.rng.NormFloat64()*d.noiseSigma),
			)
		}
	}
	return n, RXMetadata{ErrorCode: RxErrorNone}, nil
}
