package audio

import (
	"errors"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
)

// Output is the sink at the end of the graph.
type Output interface {
	Start(src beep.Streamer) error
	Suspend() error
	Resume() error
	SampleRate() beep.SampleRate
	Close() error
}

type ContextState string

const (
	ContextSuspended ContextState = "suspended"
	ContextRunning   ContextState = "running"
	ContextClosed    ContextState = "closed"
)

var ErrContextClosed = errors.New("audio: context closed")

// Context owns the output and tracks whether it is pulling audio. It starts
// suspended; Resume must be called before anything is heard.
type Context struct {
	mu     sync.Mutex
	out    Output
	state  ContextState
	output string
}

func newContext(out Output, name string) *Context {
	return &Context{out: out, state: ContextSuspended, output: name}
}

func (c *Context) start(src beep.Streamer) error {
	if err := c.out.Start(src); err != nil {
		return err
	}
	return c.out.Suspend()
}

func (c *Context) State() ContextState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// OutputName reports which sink is in use, e.g. "speaker" or "null".
func (c *Context) OutputName() string {
	return c.output
}

func (c *Context) SampleRate() beep.SampleRate {
	return c.out.SampleRate()
}

// Resume is a no-op when already running.
func (c *Context) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case ContextRunning:
		return nil
	case ContextClosed:
		return ErrContextClosed
	}
	if err := c.out.Resume(); err != nil {
		return err
	}
	c.state = ContextRunning
	return nil
}

func (c *Context) Suspend() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch c.state {
	case ContextSuspended:
		return nil
	case ContextClosed:
		return ErrContextClosed
	}
	if err := c.out.Suspend(); err != nil {
		return err
	}
	c.state = ContextSuspended
	return nil
}

func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == ContextClosed {
		return nil
	}
	c.state = ContextClosed
	return c.out.Close()
}

// nullOutput pulls the graph in real time and discards the audio. It keeps
// the clock moving on hosts without a sound device.
type nullOutput struct {
	rate   beep.SampleRate
	period time.Duration

	mu      sync.Mutex
	src     beep.Streamer
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

func NewNullOutput(rate beep.SampleRate) Output {
	return &nullOutput{rate: rate, period: 20 * time.Millisecond}
}

func (o *nullOutput) SampleRate() beep.SampleRate { return o.rate }

func (o *nullOutput) Start(src beep.Streamer) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.stop != nil {
		return errors.New("audio: null output already started")
	}
	o.src = src
	o.running = true
	o.stop = make(chan struct{})
	o.wg.Add(1)
	go o.loop(o.stop)
	return nil
}

func (o *nullOutput) loop(stop <-chan struct{}) {
	defer o.wg.Done()
	ticker := time.NewTicker(o.period)
	defer ticker.Stop()
	buf := make([][2]float64, o.rate.N(o.period))
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			o.mu.Lock()
			running := o.running
			o.mu.Unlock()
			if running {
				o.src.Stream(buf)
			}
		}
	}
}

func (o *nullOutput) Suspend() error {
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
	return nil
}

func (o *nullOutput) Resume() error {
	o.mu.Lock()
	o.running = true
	o.mu.Unlock()
	return nil
}

func (o *nullOutput) Close() error {
	o.mu.Lock()
	stop := o.stop
	o.stop = nil
	o.mu.Unlock()
	if stop != nil {
		close(stop)
		o.wg.Wait()
	}
	return nil
}

// ManualOutput only moves when Pull is called.
type ManualOutput struct {
	rate beep.SampleRate

	mu      sync.Mutex
	src     beep.Streamer
	running bool
}

func NewManualOutput(rate beep.SampleRate) *ManualOutput {
	return &ManualOutput{rate: rate}
}

func (o *ManualOutput) SampleRate() beep.SampleRate { return o.rate }

func (o *ManualOutput) Start(src beep.Streamer) error {
	o.mu.Lock()
	o.src = src
	o.running = true
	o.mu.Unlock()
	return nil
}

func (o *ManualOutput) Suspend() error {
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()
	return nil
}

func (o *ManualOutput) Resume() error {
	o.mu.Lock()
	o.running = true
	o.mu.Unlock()
	return nil
}

func (o *ManualOutput) Close() error {
	return o.Suspend()
}

// Pull streams n frames through the graph. A suspended output returns
// silence without advancing anything.
func (o *ManualOutput) Pull(n int) [][2]float64 {
	buf := make([][2]float64, n)
	o.mu.Lock()
	src, running := o.src, o.running
	o.mu.Unlock()
	if src != nil && running {
		src.Stream(buf)
	}
	return buf
}

// PullDuration pulls d worth of frames.
func (o *ManualOutput) PullDuration(d time.Duration) [][2]float64 {
	return o.Pull(o.rate.N(d))
}
