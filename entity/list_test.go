package entity

import (
	"context"

	"github.com/prometheus/client_golang/prometheus/testutil"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func newTestSensor(idx int, name string) *Sensor {
	return &Sensor{Base: Base{PanelIndex: idx, ParentName: name, NodeCount: 1}}
}

var _ = Describe("List reconciliation", func() {
	It("appends unmatched fresh entries on first populate", func() {
		l := &List[*Sensor]{Fetch: func(ctx context.Context) ([]*Sensor, error) {
			return []*Sensor{newTestSensor(0, "Front Door"), newTestSensor(1, "Back Door")}, nil
		}}
		entities, err := l.Get(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(entities).To(HaveLen(2))
	})

	It("preserves transient state across matched updates", func() {
		calls := 0
		l := &List[*Sensor]{Fetch: func(ctx context.Context) ([]*Sensor, error) {
			calls++
			s := newTestSensor(0, "Front Door")
			s.UserFlags = calls // vary the fetched record across calls
			return []*Sensor{s}, nil
		}}

		first, err := l.Get(context.Background())
		Expect(err).ToNot(HaveOccurred())
		first[0].Occupied = true
		first[0].ExtraData = "caller payload"

		Expect(l.Update(context.Background())).To(Succeed())
		entities, err := l.Get(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(entities).To(HaveLen(1))
		Expect(entities[0].Occupied).To(BeTrue())
		Expect(entities[0].ExtraData).To(Equal("caller payload"))
		Expect(entities[0].UserFlags).To(Equal(2))
	})

	It("marks cached entries absent from the fetch unavailable instead of dropping them", func() {
		present := true
		l := &List[*Sensor]{Fetch: func(ctx context.Context) ([]*Sensor, error) {
			if present {
				return []*Sensor{newTestSensor(0, "Front Door")}, nil
			}
			return nil, nil
		}}
		_, err := l.Get(context.Background())
		Expect(err).ToNot(HaveOccurred())

		present = false
		Expect(l.Update(context.Background())).To(Succeed())

		entities, err := l.Get(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(entities).To(HaveLen(1))
		Expect(entities[0].IsUnavailable()).To(BeTrue())
	})

	It("invokes Changed with isNew=true for a first sighting and false on update", func() {
		var sawNew []bool
		l := &List[*Sensor]{
			Fetch: func(ctx context.Context) ([]*Sensor, error) {
				return []*Sensor{newTestSensor(0, "Front Door")}, nil
			},
			Changed: func(e *Sensor, isNew bool) { sawNew = append(sawNew, isNew) },
		}
		_, _ = l.Get(context.Background())
		_ = l.Update(context.Background())
		Expect(sawNew).To(Equal([]bool{true, false}))
	})

	It("computes the smallest free panel-index", func() {
		l := &List[*Sensor]{Fetch: func(ctx context.Context) ([]*Sensor, error) {
			return []*Sensor{newTestSensor(0, "A"), newTestSensor(2, "B")}, nil
		}}
		idx, err := l.FreeIndex(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(idx).To(Equal(1))
	})

	It("reports the cache size gauge for a labeled Kind", func() {
		l := &List[*Sensor]{
			Kind: "sensor",
			Fetch: func(ctx context.Context) ([]*Sensor, error) {
				return []*Sensor{newTestSensor(0, "A"), newTestSensor(1, "B")}, nil
			},
		}
		_, err := l.Get(context.Background())
		Expect(err).ToNot(HaveOccurred())
		Expect(testutil.ToFloat64(entityCacheSize.WithLabelValues("sensor"))).To(Equal(2.0))
	})

	It("finds by (panel-index, display name), excluding unavailable entries on request", func() {
		l := &List[*Sensor]{Fetch: func(ctx context.Context) ([]*Sensor, error) {
			return []*Sensor{newTestSensor(3, "Front Door")}, nil
		}}
		found, ok, err := l.Find(context.Background(), 3, "Front Door", false)
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(found.ParentName).To(Equal("Front Door"))

		found.SetUnavailable()
		_, ok, err = l.Find(context.Background(), 3, "Front Door", true)
		Expect(err).ToNot(HaveOccurred())
		Expect(ok).To(BeFalse())
	})
})
