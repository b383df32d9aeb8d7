/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

/*
Package slave implements the slave side of the PTPv2 two-step delay request-response exchange.

One goroutine owns the exchange: it consumes packets from a bounded queue,
drives the Sync -> Follow_Up -> Delay_Req -> Delay_Resp state machine
and corrects the clock once all four timestamps are known.
Response timeouts and resets are handled by the same goroutine.
*/
package slave

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"

	"github.com/jonboulle/clockwork"
	log "github.com/sirupsen/logrus"

	"github.com/facebook/ptpslave/clock"
	ptp "github.com/facebook/ptpslave/ptp/protocol"
	"github.com/facebook/ptpslave/ptp/slave/stats"
	"github.com/facebook/ptpslave/ptptime"
	"github.com/facebook/ptpslave/servo"
)

// ErrInvalidGain is returned when servo gain is not a positive number
var ErrInvalidGain = errors.New("servo gains must be positive")

// ErrStopped is returned when the event loop is not running anymore
var ErrStopped = errors.New("slave is stopped")

// Sender sends Delay_Req to the master
type Sender interface {
	// SendDelayReq sends b and returns its TX timestamp
	SendDelayReq(b []byte) (ptptime.Timestamp, error)
}

type packet struct {
	data []byte
	rx   ptptime.Timestamp
}

// Slave synchronizes clock Device to the PTP master
type Slave struct {
	cfg     *Config
	clockID ptp.ClockIdentity
	dev     clock.Device
	sender  Sender
	stats   stats.StatsServer
	clock   clockwork.Clock
	servo   *servo.PD
	rand    *rand.Rand

	nominal uint32
	perPPB  float64

	packets chan packet
	events  chan func()
	done    chan struct{}

	// owned by the event loop
	cycle       SyncCycleData
	syncSeq     uint16
	delayReqSeq uint16
	timer       clockwork.Timer
	timerGen    uint64

	state      atomic.Uint32
	servoState atomic.Uint32
	addend     atomic.Uint32
	offset     atomic.Int64
	logCycle   atomic.Bool
	logCorr    atomic.Bool
}

// New creates Slave. clk is used for response timer and Delay_Req jitter.
func New(cfg *Config, clockID ptp.ClockIdentity, dev clock.Device, sender Sender, st stats.StatsServer, clk clockwork.Clock) *Slave {
	s := &Slave{
		cfg:     cfg,
		clockID: clockID,
		dev:     dev,
		sender:  sender,
		stats:   st,
		clock:   clk,
		servo:   servo.NewPD(cfg.Servo.Kp, cfg.Servo.Kd),
		rand:    rand.New(rand.NewSource(int64(clockID))),
		nominal: cfg.Oscillator.NominalAddend(),
		perPPB:  cfg.Oscillator.AddendPerPPB(),
		packets: make(chan packet, cfg.QueueSize),
		events:  make(chan func(), 1),
		done:    make(chan struct{}),
	}
	s.offset.Store(cfg.OffsetNs)
	s.logCycle.Store(cfg.Log.Cycle)
	s.logCorr.Store(cfg.Log.Correction)
	return s
}

// Init programs the clock with nominal rate and resets the exchange
func (s *Slave) Init() error {
	log.Infof("clock identity %s, nominal addend 0x%X (%d ns increment at %.0f Hz)",
		s.clockID, s.nominal, s.cfg.Oscillator.IncrementNs, s.cfg.Oscillator.FrequencyHz)
	if err := s.dev.Init(s.cfg.Oscillator.IncrementNs, s.nominal); err != nil {
		return fmt.Errorf("initializing clock: %w", err)
	}
	s.addend.Store(s.nominal)
	s.reset()
	if s.logCycle.Load() {
		log.Info(cycleHeader)
	}
	return nil
}

// Enqueue hands received packet to the event loop. It never blocks,
// packets are dropped when the queue is full.
func (s *Slave) Enqueue(b []byte, rx ptptime.Timestamp) {
	select {
	case s.packets <- packet{data: b, rx: rx}:
	default:
		s.stats.UpdateCounterBy(stats.CounterQueueDrops, 1)
		log.Debugf("queue is full, dropping %d bytes", len(b))
	}
}

// Run processes packets and events until ctx is done
func (s *Slave) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.stopTimer()
	for {
		select {
		case <-ctx.Done():
			return nil
		case p := <-s.packets:
			s.handlePacket(ctx, p.data, p.rx)
		case ev := <-s.events:
			ev()
		}
	}
}

// post schedules f to run in the event loop
func (s *Slave) post(ctx context.Context, f func()) error {
	select {
	case s.events <- f:
		return nil
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// submit runs f in the event loop and waits for it to finish
func (s *Slave) submit(ctx context.Context, f func()) error {
	finished := make(chan struct{})
	if err := s.post(ctx, func() {
		f()
		close(finished)
	}); err != nil {
		return err
	}
	select {
	case <-finished:
		return nil
	case <-s.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Slave) setState(st State) {
	s.state.Store(uint32(st))
	s.stats.SetCounter(stats.CounterState, int64(st))
}

func (s *Slave) setServoState(st servo.State) {
	s.servoState.Store(uint32(st))
	s.stats.SetCounter(stats.CounterServoState, int64(st))
}

// reset forces Idle and forgets everything learned so far
func (s *Slave) reset() {
	s.stopTimer()
	s.stats.Reset()
	s.setState(StateIdle)
	s.cycle = SyncCycleData{}
	s.syncSeq = 0
	s.delayReqSeq = 0
	s.servo.Reset()
	s.setServoState(s.servo.State())
	s.addend.Store(s.nominal)
	if err := s.dev.SetAddend(s.nominal); err != nil {
		log.Errorf("failed to restore nominal addend: %v", err)
		s.stats.UpdateCounterBy(stats.CounterClockErrors, 1)
	}
	s.stats.UpdateCounterBy(stats.CounterResets, 1)
	s.stats.SetCounter(stats.CounterAddend, int64(s.nominal))
}

func (s *Slave) armTimer() {
	s.stopTimer()
	s.timerGen++
	gen := s.timerGen
	s.timer = s.clock.AfterFunc(s.cfg.ResponseTimeout, func() {
		// error only means the loop is gone
		_ = s.post(context.Background(), func() { s.handleTimeout(gen) })
	})
}

func (s *Slave) stopTimer() {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	// invalidate timeout which may be already posted
	s.timerGen++
}

func (s *Slave) handleTimeout(gen uint64) {
	if gen != s.timerGen {
		return
	}
	s.timer = nil
	st := State(s.state.Load())
	if st == StateIdle {
		return
	}
	log.Warningf("response timeout expired in %s, state machine has been reset", st)
	s.stats.UpdateCounterBy(stats.CounterTimeouts, 1)
	s.cycle = SyncCycleData{}
	s.setState(StateIdle)
}

func (s *Slave) ignore(msgType ptp.MessageType, format string, v ...interface{}) {
	s.stats.UpdateCounterBy(stats.CounterIgnored, 1)
	log.Debugf("ignoring %s: %s", msgType, fmt.Sprintf(format, v...))
}

func (s *Slave) malformed(msgType ptp.MessageType, err error) {
	s.stats.UpdateCounterBy(stats.CounterMalformed, 1)
	log.Debugf("malformed %s: %v", msgType, err)
}

// handlePacket runs one received packet through the state machine
func (s *Slave) handlePacket(ctx context.Context, b []byte, rx ptptime.Timestamp) {
	msgType, err := ptp.ProbeMsgType(b)
	if err != nil {
		s.malformed(msgType, err)
		return
	}
	var need int
	switch msgType {
	case ptp.MessageSync:
		need = ptp.HeaderLength
	case ptp.MessageFollowUp:
		need = ptp.FollowUpLength
	case ptp.MessageDelayResp:
		need = ptp.DelayRespLength
	default:
		s.ignore(msgType, "not handled")
		return
	}
	if err := ptp.CheckLength(b, need); err != nil {
		s.malformed(msgType, err)
		return
	}
	h := ptp.DecodeHeader(b)
	switch msgType {
	case ptp.MessageSync:
		s.stats.UpdateCounterBy(stats.CounterSync, 1)
		s.handleSync(&h, rx)
	case ptp.MessageFollowUp:
		s.stats.UpdateCounterBy(stats.CounterFollowUp, 1)
		s.handleFollowUp(ctx, &h, b)
	case ptp.MessageDelayResp:
		s.stats.UpdateCounterBy(stats.CounterDelayResp, 1)
		s.handleDelayResp(&h, b)
	}
}

func (s *Slave) handleSync(h *ptp.Header, rx ptptime.Timestamp) {
	if st := State(s.state.Load()); st != StateIdle {
		s.ignore(h.MessageType, "seq %d in %s", h.SequenceID, st)
		return
	}
	logReceive(h.MessageType, "seq=%d, t2=%s", h.SequenceID, rx)
	s.cycle = SyncCycleData{T2: rx}
	s.syncSeq = h.SequenceID
	s.armTimer()
	s.setState(StateWaitFollowUp)
}

func (s *Slave) handleFollowUp(ctx context.Context, h *ptp.Header, b []byte) {
	if st := State(s.state.Load()); st != StateWaitFollowUp {
		s.ignore(h.MessageType, "seq %d in %s", h.SequenceID, st)
		return
	}
	if h.SequenceID != s.syncSeq {
		s.ignore(h.MessageType, "seq %d, waiting for %d", h.SequenceID, s.syncSeq)
		return
	}
	s.cycle.T1 = ptp.DecodeTimestamps(b, 1)[0]
	corr := h.Correction()
	s.cycle.T2 = s.cycle.T2.Sub(corr)
	logReceive(h.MessageType, "seq=%d, t1=%s", h.SequenceID, s.cycle.T1)
	if s.logCorr.Load() {
		log.Infof("C [Follow_Up]: %d", h.CorrectionNs)
	}

	if !s.waitJitter(ctx) {
		return
	}

	s.delayReqSeq++
	req := ptp.NewDelayReq(s.clockID, s.cfg.PortNumber, s.delayReqSeq)
	t3, err := s.sender.SendDelayReq(req)
	if err != nil {
		// the response timer brings us back to Idle
		log.Errorf("failed to send %s: %v", ptp.MessageDelayReq, err)
		s.stats.UpdateCounterBy(stats.CounterTXErrors, 1)
		return
	}
	s.stats.UpdateCounterBy(stats.CounterDelayReq, 1)
	logSent(ptp.MessageDelayReq, "seq=%d, t3=%s", s.delayReqSeq, t3)
	s.cycle.T3 = t3
	s.setState(StateWaitDelayResp)
}

// waitJitter spreads Delay_Req of slaves sharing the multicast domain
func (s *Slave) waitJitter(ctx context.Context) bool {
	if s.cfg.DelayReqMaxJitter <= 0 {
		return true
	}
	d := s.rand.Int63n(int64(s.cfg.DelayReqMaxJitter))
	if d == 0 {
		return true
	}
	select {
	case <-s.clock.After(ptptime.FromNanoseconds(d).Duration()):
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Slave) handleDelayResp(h *ptp.Header, b []byte) {
	if st := State(s.state.Load()); st != StateWaitDelayResp {
		s.ignore(h.MessageType, "seq %d in %s", h.SequenceID, st)
		return
	}
	if h.SequenceID != s.delayReqSeq {
		s.ignore(h.MessageType, "seq %d, waiting for %d", h.SequenceID, s.delayReqSeq)
		return
	}
	id := ptp.DecodeDelayRespIdentification(b)
	if id.RequestingClockIdentity != s.clockID || id.RequestingPortID != s.cfg.PortNumber {
		s.ignore(h.MessageType, "addressed to %s/%d", id.RequestingClockIdentity, id.RequestingPortID)
		return
	}
	t4 := ptp.DecodeTimestamps(b, 1)[0]
	s.cycle.T4 = t4.Sub(h.Correction())
	logReceive(h.MessageType, "seq=%d, t4=%s", h.SequenceID, s.cycle.T4)
	if s.logCorr.Load() {
		log.Infof("C [Del_Resp]: %d", h.CorrectionNs)
	}

	s.correct()
	s.stopTimer()
	s.cycle = SyncCycleData{}
	s.setState(StateIdle)
}

// correct steers the clock using completed cycle
func (s *Slave) correct() {
	offset := ptptime.FromNanoseconds(s.offset.Load())
	e := s.cycle.Error(offset)
	delay := s.cycle.MeanPathDelay()
	s.stats.UpdateCounterBy(stats.CounterCycles, 1)
	s.stats.SetCounter(stats.CounterOffset, e.TotalNanoseconds())
	s.stats.AddOffset(e.TotalNanoseconds())
	s.stats.SetCounter(stats.CounterPathDelay, delay.TotalNanoseconds())
	s.stats.AddPathDelay(delay.TotalNanoseconds())

	addend := s.addend.Load()
	if e.WholeSeconds() != 0 {
		log.Warningf("time difference %s is over 1s, performing coarse correction", e)
		neg := e.Neg()
		if err := s.dev.JumpClock(neg.Seconds, neg.Nanoseconds); err != nil {
			log.Errorf("failed to jump clock: %v", err)
			s.stats.UpdateCounterBy(stats.CounterClockErrors, 1)
		} else {
			s.stats.UpdateCounterBy(stats.CounterJumps, 1)
		}
		s.setServoState(servo.StateJump)
	} else {
		ppb := s.servo.Run(e.TotalNanoseconds())
		addend = clock.AdjustAddend(addend, ppb, s.perPPB)
		if err := s.dev.SetAddend(addend); err != nil {
			log.Errorf("failed to set addend 0x%X: %v", addend, err)
			s.stats.UpdateCounterBy(stats.CounterClockErrors, 1)
		} else {
			s.addend.Store(addend)
		}
		s.setServoState(s.servo.State())
		log.Debugf("offset %dns, path delay %dns, correction %.3f ppb", e.TotalNanoseconds(), delay.TotalNanoseconds(), ppb)
		if s.logCycle.Load() {
			logCycle(&s.cycle, e, int64(s.cfg.Oscillator.TickFrequencyHz()), s.addend.Load())
		}
	}
	s.stats.SetCounter(stats.CounterAddend, int64(s.addend.Load()))
}
