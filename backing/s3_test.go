package backing_test

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/mplewis/ssmkv/backing"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

// fakeS3 keeps objects of a single bucket in a map.
type fakeS3 struct {
	objects map[string]string
	err     error
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.objects[*in.Key]
	if !ok {
		return nil, &types.NoSuchKey{Message: aws.String("no such key")}
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(v))}, nil
}

func (f *fakeS3) PutObject(ctx context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.objects[*in.Key] = string(data)
	return &s3.PutObjectOutput{}, nil
}

func (f *fakeS3) HeadObject(ctx context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	if _, ok := f.objects[*in.Key]; !ok {
		return nil, &types.NotFound{Message: aws.String("not found")}
	}
	return &s3.HeadObjectOutput{}, nil
}

var _ = Describe("S3", func() {
	var fake *fakeS3
	var b *backing.S3

	BeforeEach(func() {
		fake = &fakeS3{objects: map[string]string{}}
		var err error
		b, err = backing.NewS3(ctx, backing.S3Args{Bucket: "params", Namespace: "test-ns", Client: fake})
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires a bucket and a namespace", func() {
		_, err := backing.NewS3(ctx, backing.S3Args{Namespace: "ns", Client: fake})
		Expect(err).To(HaveOccurred())
		_, err = backing.NewS3(ctx, backing.S3Args{Bucket: "b", Client: fake})
		Expect(err).To(HaveOccurred())
	})

	It("behaves as expected", func() {
		_, err := b.Get(ctx, "foo")
		Expect(err).To(MatchError(backing.ErrNotFound))

		Expect(b.Put(ctx, "foo", "{}", false)).To(Succeed())
		Expect(fake.objects).To(HaveKeyWithValue("test-ns/foo", "{}"))

		v, err := b.Get(ctx, "foo")
		Expect(err).NotTo(HaveOccurred())
		Expect(v).To(Equal("{}"))

		Expect(b.Put(ctx, "foo", `{"a":"b"}`, false)).To(MatchError(backing.ErrAlreadyExists))
		Expect(b.Put(ctx, "foo", `{"a":"b"}`, true)).To(Succeed())
		Expect(fake.objects).To(HaveKeyWithValue("test-ns/foo", `{"a":"b"}`))
	})

	It("wraps other failures in a BackendError", func() {
		fake.err = errors.New("access denied")
		err := b.Put(ctx, "foo", "[]", true)
		var berr *backing.BackendError
		Expect(errors.As(err, &berr)).To(BeTrue())
		Expect(berr.Op).To(Equal("put"))
	})
})
