// pattern: Imperative Shell

package provider

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"benchup/internal/config"
	"benchup/internal/logging"
)

// ec2API abstracts the EC2 calls the provider makes, for testing.
type ec2API interface {
	RunInstances(ctx context.Context, params *ec2.RunInstancesInput, optFns ...func(*ec2.Options)) (*ec2.RunInstancesOutput, error)
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	TerminateInstances(ctx context.Context, params *ec2.TerminateInstancesInput, optFns ...func(*ec2.Options)) (*ec2.TerminateInstancesOutput, error)
	DescribeKeyPairs(ctx context.Context, params *ec2.DescribeKeyPairsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeKeyPairsOutput, error)
	ImportKeyPair(ctx context.Context, params *ec2.ImportKeyPairInput, optFns ...func(*ec2.Options)) (*ec2.ImportKeyPairOutput, error)
}

// Provider drives the AWS-backed workbench VM lifecycle.
type Provider struct {
	api          ec2API
	cfg          config.AWSConfig
	logger       *logging.Logger
	pollInterval time.Duration
}

// New builds a Provider from the shared AWS config chain (profile,
// environment, instance role).
func New(ctx context.Context, cfg config.AWSConfig, logger *logging.Logger) (*Provider, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.Profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(cfg.Profile))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS credentials: %w", err)
	}

	return &Provider{
		api:          ec2.NewFromConfig(awsCfg),
		cfg:          cfg,
		logger:       logger,
		pollInterval: 5 * time.Second,
	}, nil
}

// NewWithAPI builds a Provider around an injected API, for tests.
func NewWithAPI(api ec2API, cfg config.AWSConfig, logger *logging.Logger) *Provider {
	return &Provider{
		api:          api,
		cfg:          cfg,
		logger:       logger,
		pollInterval: time.Millisecond,
	}
}

// EnsureKeyPair imports the public key under cfg.KeyName when the key
// pair does not exist yet.
func (p *Provider) EnsureKeyPair(ctx context.Context, publicKey string) error {
	if p.cfg.KeyName == "" {
		return fmt.Errorf("aws.key_name is not configured")
	}

	_, err := p.api.DescribeKeyPairs(ctx, &ec2.DescribeKeyPairsInput{
		KeyNames: []string{p.cfg.KeyName},
	})
	if err == nil {
		return nil
	}
	if !strings.Contains(err.Error(), "InvalidKeyPair.NotFound") {
		return fmt.Errorf("describing key pair %q: %w", p.cfg.KeyName, err)
	}

	p.logger.Info("importing key pair", "key_name", p.cfg.KeyName)
	_, err = p.api.ImportKeyPair(ctx, &ec2.ImportKeyPairInput{
		KeyName:           aws.String(p.cfg.KeyName),
		PublicKeyMaterial: []byte(publicKey),
	})
	if err != nil {
		return fmt.Errorf("importing key pair %q: %w", p.cfg.KeyName, err)
	}
	return nil
}

// Launch creates the workbench instance and waits until it is running
// with a public address. The returned Instance carries the ID even on
// wait failure so the caller can terminate it.
func (p *Provider) Launch(ctx context.Context) (Instance, error) {
	input := &ec2.RunInstancesInput{
		ImageId:      aws.String(p.cfg.AMI),
		InstanceType: ec2types.InstanceType(p.cfg.InstanceType),
		MinCount:     aws.Int32(1),
		MaxCount:     aws.Int32(1),
		TagSpecifications: []ec2types.TagSpecification{{
			ResourceType: ec2types.ResourceTypeInstance,
			Tags:         p.instanceTags(),
		}},
	}
	if p.cfg.KeyName != "" {
		input.KeyName = aws.String(p.cfg.KeyName)
	}
	if p.cfg.SecurityGroup != "" {
		input.SecurityGroupIds = []string{p.cfg.SecurityGroup}
	}
	if p.cfg.SubnetID != "" {
		input.SubnetId = aws.String(p.cfg.SubnetID)
	}
	if p.cfg.VolumeGB > 0 {
		input.BlockDeviceMappings = []ec2types.BlockDeviceMapping{{
			DeviceName: aws.String("/dev/sda1"),
			Ebs: &ec2types.EbsBlockDevice{
				VolumeSize:          aws.Int32(int32(p.cfg.VolumeGB)),
				VolumeType:          ec2types.VolumeTypeGp3,
				DeleteOnTermination: aws.Bool(true),
			},
		}}
	}

	out, err := p.api.RunInstances(ctx, input)
	if err != nil {
		return Instance{}, fmt.Errorf("launching instance: %w", err)
	}
	if len(out.Instances) == 0 {
		return Instance{}, fmt.Errorf("launching instance: empty reservation")
	}

	id := aws.ToString(out.Instances[0].InstanceId)
	p.logger.Info("instance launched", "instance_id", id, "type", p.cfg.InstanceType, "ami", p.cfg.AMI)

	inst, err := p.waitRunning(ctx, id)
	if err != nil {
		return Instance{ID: id}, err
	}
	return inst, nil
}

// Status describes a previously launched instance.
func (p *Provider) Status(ctx context.Context, instanceID string) (Instance, error) {
	out, err := p.api.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		return Instance{}, fmt.Errorf("describing instance %s: %w", instanceID, err)
	}

	for _, res := range out.Reservations {
		for _, inst := range res.Instances {
			return fromEC2Instance(inst), nil
		}
	}
	return Instance{}, fmt.Errorf("instance %s not found", instanceID)
}

// Terminate destroys the instance. Idempotent from the caller's view:
// terminating an already-terminated instance is not an error.
func (p *Provider) Terminate(ctx context.Context, instanceID string) error {
	_, err := p.api.TerminateInstances(ctx, &ec2.TerminateInstancesInput{
		InstanceIds: []string{instanceID},
	})
	if err != nil {
		if strings.Contains(err.Error(), "InvalidInstanceID.NotFound") {
			return nil
		}
		return fmt.Errorf("terminating instance %s: %w", instanceID, err)
	}
	p.logger.Info("instance terminating", "instance_id", instanceID)
	return nil
}

// waitRunning polls until the instance is running with a public address,
// or ctx expires.
func (p *Provider) waitRunning(ctx context.Context, instanceID string) (Instance, error) {
	for {
		inst, err := p.Status(ctx, instanceID)
		if err == nil && inst.Running() && inst.Address() != "" {
			p.logger.Info("instance running", "instance_id", instanceID, "address", inst.Address())
			return inst, nil
		}
		if err == nil && (inst.State == "terminated" || inst.State == "shutting-down") {
			return inst, fmt.Errorf("instance %s went to state %s while waiting", instanceID, inst.State)
		}

		select {
		case <-ctx.Done():
			return Instance{ID: instanceID}, fmt.Errorf("waiting for instance %s: %w", instanceID, ctx.Err())
		case <-time.After(p.pollInterval):
		}
	}
}

// instanceTags merges configured tags with the benchup marker tag.
func (p *Provider) instanceTags() []ec2types.Tag {
	tags := []ec2types.Tag{
		{Key: aws.String("Name"), Value: aws.String("benchup-workbench")},
		{Key: aws.String("benchup:managed"), Value: aws.String("true")},
	}
	for k, v := range p.cfg.Tags {
		tags = append(tags, ec2types.Tag{Key: aws.String(k), Value: aws.String(v)})
	}
	return tags
}

func fromEC2Instance(inst ec2types.Instance) Instance {
	out := Instance{
		ID:        aws.ToString(inst.InstanceId),
		PublicIP:  aws.ToString(inst.PublicIpAddress),
		PublicDNS: aws.ToString(inst.PublicDnsName),
	}
	if inst.State != nil {
		out.State = string(inst.State.Name)
	}
	if inst.LaunchTime != nil {
		out.LaunchedAt = *inst.LaunchTime
	}
	return out
}
