package entity

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Base.DisplayName", func() {
	It("returns the parent name for single-node entities", func() {
		b := &Base{ParentName: "Front Door", NodeCount: 1, Subindex: 0}
		Expect(b.DisplayName()).To(Equal("Front Door"))
	})

	It("suffixes multi-node entities with #<subindex+1>", func() {
		b := &Base{ParentName: "Curtain", NodeCount: 3, Subindex: 1}
		Expect(b.DisplayName()).To(Equal("Curtain#2"))
	})
})

var _ = Describe("DeriveAlertMode", func() {
	It("returns ALERT_WHEN_AWAY_AND_HOME when that bit is set", func() {
		Expect(DeriveAlertMode(FlagEnabled | FlagAlertWhenAwayAndHome)).To(Equal(AlertWhenAwayAndHome))
	})

	It("returns ALERT_WHEN_AWAY when only that bit is set", func() {
		Expect(DeriveAlertMode(FlagEnabled | FlagAlertWhenAway)).To(Equal(AlertWhenAway))
	})

	It("returns ALERT_ALWAYS when neither bit is set", func() {
		Expect(DeriveAlertMode(FlagEnabled)).To(Equal(AlertAlways))
	})
})
