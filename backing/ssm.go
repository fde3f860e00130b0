package backing

import (
	"context"
	"errors"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// SSMAPI is the subset of the Systems Manager client used by the SSM backing.
type SSMAPI interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
	PutParameter(ctx context.Context, params *ssm.PutParameterInput, optFns ...func(*ssm.Options)) (*ssm.PutParameterOutput, error)
}

// SSM stores parameters in AWS Systems Manager Parameter Store as String parameters.
type SSM struct {
	namespace string
	client    SSMAPI
}

// SSMArgs are the arguments for creating a new SSM backing.
type SSMArgs struct {
	Namespace string // Optional. A path prefix for all parameter names, e.g. "ml/prod".
	Client    SSMAPI // Optional. The SSM client to use. If not provided, a client will be automatically configured from your environment.
	Region    string // Optional. Overrides the region from your environment when Client is not provided.
	Endpoint  string // Optional. A custom endpoint, e.g. a local SSM emulator.
}

// NewSSM creates a new backing which stores parameters in AWS SSM Parameter Store.
func NewSSM(ctx context.Context, args SSMArgs) (*SSM, error) {
	if args.Client == nil {
		cfg, err := loadAWSConfig(ctx, args.Region)
		if err != nil {
			return nil, err
		}
		args.Client = ssm.NewFromConfig(cfg, func(o *ssm.Options) {
			if args.Endpoint != "" {
				o.BaseEndpoint = aws.String(args.Endpoint)
			}
		})
	}
	return &SSM{client: args.Client, namespace: strings.Trim(args.Namespace, "/")}, nil
}

// ns prefixes the namespace path to the given name. Without a namespace the name is used as given.
func (s *SSM) ns(name Name) string {
	if s.namespace == "" {
		return name
	}
	return "/" + s.namespace + "/" + strings.TrimPrefix(name, "/")
}

// Get returns the value for the given parameter.
func (s *SSM) Get(ctx context.Context, name Name) (string, error) {
	out, err := s.client.GetParameter(ctx, &ssm.GetParameterInput{Name: aws.String(s.ns(name))})
	if err != nil {
		return "", wrap("get", name, classifySSM(err))
	}
	if out.Parameter == nil || out.Parameter.Value == nil {
		return "", ErrNotFound
	}
	return *out.Parameter.Value, nil
}

// Put sets the value for the given parameter.
func (s *SSM) Put(ctx context.Context, name Name, value string, overwrite bool) error {
	_, err := s.client.PutParameter(ctx, &ssm.PutParameterInput{
		Name:      aws.String(s.ns(name)),
		Value:     aws.String(value),
		Type:      types.ParameterTypeString,
		Overwrite: aws.Bool(overwrite),
	})
	return wrap("put", name, classifySSM(err))
}

// classifySSM maps the SSM error shapes that have a sentinel equivalent.
func classifySSM(err error) error {
	var nf *types.ParameterNotFound
	if errors.As(err, &nf) {
		return ErrNotFound
	}
	var exists *types.ParameterAlreadyExists
	if errors.As(err, &exists) {
		return ErrAlreadyExists
	}
	return err
}
