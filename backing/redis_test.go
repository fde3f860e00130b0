package backing_test

import (
	"os/exec"

	"github.com/go-redis/redis/v8"
	"github.com/mplewis/ssmkv/backing"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
	"github.com/stvp/tempredis"
)

var _ = Describe("Redis", func() {
	var server *tempredis.Server
	var client *redis.Client
	var b *backing.Redis

	BeforeEach(func() {
		if _, err := exec.LookPath("redis-server"); err != nil {
			Skip("redis-server is not installed")
		}
		var err error
		server, err = tempredis.Start(tempredis.Config{})
		Expect(err).NotTo(HaveOccurred())
		client = redis.NewClient(&redis.Options{Network: "unix", Addr: server.Socket()})
		b, err = backing.NewRedis(backing.RedisArgs{Client: client, Namespace: "test-ns"})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if client != nil {
			client.Close()
		}
		if server != nil {
			server.Term()
		}
	})

	It("behaves as expected", func() {
		_, err := b.Get(ctx, "foo")
		Expect(err).To(MatchError(backing.ErrNotFound))

		Expect(b.Put(ctx, "foo", "[]", false)).To(Succeed())
		Expect(b.Put(ctx, "foo", "[x]", false)).To(MatchError(backing.ErrAlreadyExists))
		Expect(b.Put(ctx, "foo", "[x]", true)).To(Succeed())

		e, err := b.GetVersioned(ctx, "foo")
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(Equal(backing.Entry{Value: "[x]", Version: 2}))

		raw, err := client.HGet(ctx, "ssmkv:test-ns:foo", "value").Result()
		Expect(err).NotTo(HaveOccurred())
		Expect(raw).To(Equal("[x]"))
	})

	It("rejects writes against a stale version", func() {
		Expect(b.PutIfVersion(ctx, "foo", "a", backing.Missing)).To(Succeed())
		Expect(b.PutIfVersion(ctx, "foo", "b", backing.Missing)).To(MatchError(backing.ErrConflict))
		Expect(b.PutIfVersion(ctx, "foo", "b", 1)).To(Succeed())
		Expect(b.PutIfVersion(ctx, "foo", "c", 1)).To(MatchError(backing.ErrConflict))
	})

	It("never treats a hash without a version as missing", func() {
		Expect(client.HSet(ctx, "ssmkv:test-ns:foo", "value", "[a]").Err()).To(Succeed())

		e, err := b.GetVersioned(ctx, "foo")
		Expect(err).NotTo(HaveOccurred())
		Expect(e).To(Equal(backing.Entry{Value: "[a]", Version: 1}))

		Expect(b.PutIfVersion(ctx, "foo", "[]", backing.Missing)).To(MatchError(backing.ErrConflict))
		Expect(b.Put(ctx, "foo", "[]", false)).To(MatchError(backing.ErrAlreadyExists))
		Expect(b.PutIfVersion(ctx, "foo", "[a,b]", 1)).To(Succeed())
		Expect(b.Get(ctx, "foo")).To(Equal("[a,b]"))
	})
})
