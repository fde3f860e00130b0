package ssmkv_test

import (
	"context"
	"sync"

	"github.com/mplewis/ssmkv"
	"github.com/mplewis/ssmkv/backing"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/sirupsen/logrus/hooks/test"
)

var _ = Describe("Init", func() {
	var b *recorder
	var s *ssmkv.Store

	BeforeEach(func() {
		logger, _ := test.NewNullLogger()
		b = newRecorder()
		var err error
		s, err = ssmkv.New(ssmkv.Args{Backing: b, Logger: logger})
		Expect(err).NotTo(HaveOccurred())
	})

	It("creates absent parameters with the empty encoding of their kind", func() {
		v, err := s.Init(ctx, "set", ssmkv.KindSet)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("[]"))

		v, err = s.Init(ctx, "map", ssmkv.KindMap)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("{}"))

		Expect(b.Names()).To(ConsistOf("set", "map"))
	})

	It("re-reads the parameter after creating it", func() {
		_, err := s.Init(ctx, "p", ssmkv.KindSet)
		Expect(err).NotTo(HaveOccurred())
		gets, puts := b.calls()
		Expect(gets).To(Equal(2))
		Expect(puts).To(Equal(1))
	})

	It("returns existing values unchanged, whatever they hold", func() {
		Expect(b.Put(ctx, "p", "not-a-list", true)).To(Succeed())
		v, err := s.Init(ctx, "p", ssmkv.KindSet)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("not-a-list"))
		_, puts := b.calls()
		Expect(puts).To(Equal(1))
	})

	It("surfaces a cancelled context as a backend error", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.Init(cctx, "p", ssmkv.KindSet)
		var berr *backing.BackendError
		Expect(err).To(BeAssignableToTypeOf(berr))
		Expect(err).To(MatchError(context.Canceled))
	})

	It("converges when many callers initialize the same parameter", func() {
		wg := sync.WaitGroup{}
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer GinkgoRecover()
				defer wg.Done()
				v, err := s.Init(ctx, "p", ssmkv.KindMap)
				Expect(err).NotTo(HaveOccurred())
				Expect(v).To(Equal("{}"))
			}()
		}
		wg.Wait()
		Expect(b.value("p")).To(Equal("{}"))
	})

	It("finishes a shared creation for the other callers when one caller gives up", func() {
		b.putGate = make(chan struct{})
		cctx, cancel := context.WithCancel(ctx)
		cancelled := make(chan error, 1)
		go func() {
			_, err := s.Init(cctx, "p", ssmkv.KindSet)
			cancelled <- err
		}()
		Eventually(func() int {
			_, puts := b.calls()
			return puts
		}).Should(Equal(1))

		joined := make(chan string, 1)
		go func() {
			defer GinkgoRecover()
			v, err := s.Init(ctx, "p", ssmkv.KindSet)
			Expect(err).NotTo(HaveOccurred())
			joined <- v
		}()
		Eventually(func() int {
			gets, _ := b.calls()
			return gets
		}).Should(Equal(2))

		cancel()
		var err error
		Eventually(cancelled).Should(Receive(&err))
		Expect(err).To(MatchError(context.Canceled))

		close(b.putGate)
		Eventually(joined).Should(Receive(Equal("[]")))
		Expect(b.value("p")).To(Equal("[]"))
	})

	It("only creates with compare-and-swap, keeping a concurrent creator's value", func() {
		logger, _ := test.NewNullLogger()
		cas, err := ssmkv.New(ssmkv.Args{Backing: b, Logger: logger, CompareAndSwap: true})
		Expect(err).NotTo(HaveOccurred())
		b.beforeCAS = func() {
			b.beforeCAS = nil
			Expect(b.Memory.Put(ctx, "p", "[theirs]", false)).To(Succeed())
		}
		v, err := cas.Init(ctx, "p", ssmkv.KindSet)
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("[theirs]"))
	})
})
