package series

import "fmt"

// Store holds the bounded telemetry windows for every (performer, position,
// channel) triple, plus the derived correlation series. The full structure is
// allocated at construction: there is no lazy creation and no key-existence
// branching on the hot path. All mutation happens on the single ingestion
// goroutine.
type Store struct {
	performers []*Performer
	positions  int
	capacity   int
}

// Performer owns one SensorSlot per sensor position.
type Performer struct {
	index int // 1-based
	slots []*SensorSlot
}

// SensorSlot owns the channel series for one (performer, position) pair and
// the correlation series derived from them. Correlation series are indexed by
// base channel and by the counterpart key: another position for
// intra-performer pairs, a performer index for cross-performer pairs.
type SensorSlot struct {
	position int // 1-based
	channels [NumChannels]*TimeSeries
	intra    [NumChannels][]*TimeSeries // [channel][otherPosition-1]
	inter    [NumChannels][]*TimeSeries // [channel][otherPerformer-1]
}

// NewStore allocates a store for the fixed topology. Every series, including
// all correlation slots, is created up front and zero-filled.
func NewStore(performers, positions, capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	st := &Store{
		performers: make([]*Performer, performers),
		positions:  positions,
		capacity:   capacity,
	}
	for p := 0; p < performers; p++ {
		perf := &Performer{index: p + 1, slots: make([]*SensorSlot, positions)}
		for s := 0; s < positions; s++ {
			slot := &SensorSlot{position: s + 1}
			for c := 0; c < NumChannels; c++ {
				slot.channels[c] = NewTimeSeries(capacity)
				slot.intra[c] = make([]*TimeSeries, positions)
				slot.inter[c] = make([]*TimeSeries, performers)
				for o := 0; o < positions; o++ {
					slot.intra[c][o] = NewTimeSeries(capacity)
				}
				for o := 0; o < performers; o++ {
					slot.inter[c][o] = NewTimeSeries(capacity)
				}
			}
			perf.slots[s] = slot
		}
		st.performers[p] = perf
	}
	return st
}

// Performers returns the number of performers in the fixed topology.
func (st *Store) Performers() int { return len(st.performers) }

// Positions returns the number of sensor positions per performer.
func (st *Store) Positions() int { return st.positions }

// Capacity returns the per-series window capacity.
func (st *Store) Capacity() int { return st.capacity }

func (st *Store) slot(performer, position int) (*SensorSlot, error) {
	if performer < 1 || performer > len(st.performers) {
		return nil, fmt.Errorf("series: performer %d out of range 1..%d", performer, len(st.performers))
	}
	if position < 1 || position > st.positions {
		return nil, fmt.Errorf("series: position %d out of range 1..%d", position, st.positions)
	}
	return st.performers[performer-1].slots[position-1], nil
}

// Append pushes one sample onto a channel series.
func (st *Store) Append(performer, position int, ch Channel, v float64) error {
	slot, err := st.slot(performer, position)
	if err != nil {
		return err
	}
	if !ch.Valid() {
		return fmt.Errorf("series: invalid channel %d", ch)
	}
	slot.channels[ch].Append(v)
	return nil
}

// Window returns the most recent n samples of a channel series, oldest first.
func (st *Store) Window(performer, position int, ch Channel, n int) ([]float64, error) {
	slot, err := st.slot(performer, position)
	if err != nil {
		return nil, err
	}
	if !ch.Valid() {
		return nil, fmt.Errorf("series: invalid channel %d", ch)
	}
	return slot.channels[ch].Window(n)
}

// RealSamples returns the genuine (non zero-fill) sample count of a channel
// series, for eligibility checks.
func (st *Store) RealSamples(performer, position int, ch Channel) int {
	slot, err := st.slot(performer, position)
	if err != nil || !ch.Valid() {
		return 0
	}
	return slot.channels[ch].RealSamples()
}

// AppendIntra records an intra-performer correlation coefficient on the slot
// at position, keyed by (channel, otherPosition).
func (st *Store) AppendIntra(performer, position int, ch Channel, otherPosition int, v float64) error {
	slot, err := st.slot(performer, position)
	if err != nil {
		return err
	}
	if !ch.Valid() {
		return fmt.Errorf("series: invalid channel %d", ch)
	}
	if otherPosition < 1 || otherPosition > st.positions {
		return fmt.Errorf("series: counterpart position %d out of range 1..%d", otherPosition, st.positions)
	}
	slot.intra[ch][otherPosition-1].Append(v)
	return nil
}

// IntraWindow returns the most recent n intra-performer correlation values
// for (channel, otherPosition) under the given slot.
func (st *Store) IntraWindow(performer, position int, ch Channel, otherPosition, n int) ([]float64, error) {
	slot, err := st.slot(performer, position)
	if err != nil {
		return nil, err
	}
	if !ch.Valid() || otherPosition < 1 || otherPosition > st.positions {
		return nil, fmt.Errorf("series: invalid correlation key (%d, %d)", ch, otherPosition)
	}
	return slot.intra[ch][otherPosition-1].Window(n)
}

// AppendInter records a cross-performer correlation coefficient on the source
// slot, keyed by (channel, target performer).
func (st *Store) AppendInter(performer, position int, ch Channel, targetPerformer int, v float64) error {
	slot, err := st.slot(performer, position)
	if err != nil {
		return err
	}
	if !ch.Valid() {
		return fmt.Errorf("series: invalid channel %d", ch)
	}
	if targetPerformer < 1 || targetPerformer > len(st.performers) {
		return fmt.Errorf("series: target performer %d out of range 1..%d", targetPerformer, len(st.performers))
	}
	slot.inter[ch][targetPerformer-1].Append(v)
	return nil
}

// InterWindow returns the most recent n cross-performer correlation values
// for (channel, targetPerformer) under the given slot.
func (st *Store) InterWindow(performer, position int, ch Channel, targetPerformer, n int) ([]float64, error) {
	slot, err := st.slot(performer, position)
	if err != nil {
		return nil, err
	}
	if !ch.Valid() || targetPerformer < 1 || targetPerformer > len(st.performers) {
		return nil, fmt.Errorf("series: invalid correlation key (%d, %d)", ch, targetPerformer)
	}
	return slot.inter[ch][targetPerformer-1].Window(n)
}
