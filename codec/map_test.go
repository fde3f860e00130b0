package codec_test

import (
	"fmt"
	"math/rand"

	"github.com/mplewis/ssmkv/codec"
	. "github.com/onsi/ginkgo"
	"github.com/onsi/ginkgo/extensions/table"
	. "github.com/onsi/gomega"
)

var _ = Describe("Map codec", func() {
	It("decodes objects of strings", func() {
		m, err := codec.DecodeMap(`{"model": "v2", "stage": "prod"}`)
		Expect(err).NotTo(HaveOccurred())
		Expect(m).To(Equal(codec.NewMap(map[string]string{"model": "v2", "stage": "prod"})))
		v, ok := m.Get("model")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("v2"))

		m, err = codec.DecodeMap(codec.EmptyMap)
		Expect(err).NotTo(HaveOccurred())
		Expect(m).To(BeEmpty())
		Expect(m).NotTo(BeNil())
	})

	table.DescribeTable("rejects malformed values",
		func(raw string) {
			_, err := codec.DecodeMap(raw)
			Expect(err).To(MatchError(codec.ErrMalformedValue))
		},
		table.Entry("invalid JSON", "{not json"),
		table.Entry("an array", `["a"]`),
		table.Entry("a string", `"a"`),
		table.Entry("null", "null"),
		table.Entry("the set encoding", "[]"),
		table.Entry("trailing data", `{} {}`),
	)

	It("keeps values of other JSON types", func() {
		m, err := codec.DecodeMap(`{"n": 1, "s": "x", "o": {"deep": [true, null]}, "z": null}`)
		Expect(err).NotTo(HaveOccurred())
		v, ok := m.Get("n")
		Expect(ok).To(BeTrue())
		Expect(v).To(Equal("1"))

		m.Set("k", "y")
		Expect(codec.EncodeMap(m)).To(Equal(`{"k":"y","n":1,"o":{"deep":[true,null]},"s":"x","z":null}`))
	})

	It("reports whether Delete changed the map", func() {
		m := codec.NewMap(map[string]string{"a": "1"})
		Expect(m.Delete("b")).To(BeFalse())
		Expect(m.Delete("a")).To(BeTrue())
		_, ok := m.Get("a")
		Expect(ok).To(BeFalse())
	})

	It("lists keys sorted", func() {
		Expect(codec.NewMap(map[string]string{"b": "", "a": "", "B": ""}).Keys()).To(Equal([]string{"B", "a", "b"}))
	})

	It("encodes compactly with sorted keys", func() {
		Expect(codec.EncodeMap(codec.NewMap(map[string]string{"b": "2", "a": "1"}))).To(Equal(`{"a":"1","b":"2"}`))
		Expect(codec.EncodeMap(codec.Map{})).To(Equal(codec.EmptyMap))
		Expect(codec.EncodeMap(nil)).To(Equal(codec.EmptyMap))
	})

	It("leaves HTML characters unescaped", func() {
		Expect(codec.EncodeMap(codec.NewMap(map[string]string{"q": "a<b&c>"}))).To(Equal(`{"q":"a<b&c>"}`))
	})

	It("round-trips arbitrary mappings", func() {
		r := rand.New(rand.NewSource(7))
		for i := 0; i < 200; i++ {
			m := codec.Map{}
			for j := 0; j < r.Intn(6); j++ {
				m.Set(fmt.Sprintf("k%d\"\n", r.Intn(20)), fmt.Sprintf("v,%d]<", r.Int()))
			}
			decoded, err := codec.DecodeMap(codec.EncodeMap(m))
			Expect(err).NotTo(HaveOccurred())
			Expect(decoded).To(Equal(m))
		}
	})
})
