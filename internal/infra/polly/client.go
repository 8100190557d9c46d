// Package polly synthesizes speech with Amazon Polly.
package polly

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/polly/types"

	"voice-relay/internal/domain"
)

type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	// Endpoint overrides the regional endpoint, e.g. for a local stub.
	Endpoint   string
	VoiceID    string
	Engine     string
	Format     string
	SampleRate string
}

type Client struct {
	polly      *polly.Client
	voiceID    types.VoiceId
	engine     types.Engine
	format     types.OutputFormat
	sampleRate string
}

// NewClient loads the default AWS configuration chain. Static credentials
// from Config take precedence when both keys are set.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.VoiceID == "" {
		cfg.VoiceID = "Joanna"
	}
	if cfg.Engine == "" {
		cfg.Engine = "neural"
	}
	if cfg.Format == "" {
		cfg.Format = "mp3"
	}
	if cfg.SampleRate == "" {
		cfg.SampleRate = "24000"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := polly.NewFromConfig(awsCfg, func(o *polly.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
	})

	return &Client{
		polly:      client,
		voiceID:    types.VoiceId(cfg.VoiceID),
		engine:     types.Engine(cfg.Engine),
		format:     types.OutputFormat(cfg.Format),
		sampleRate: cfg.SampleRate,
	}, nil
}

func (c *Client) Synthesize(ctx context.Context, text string) (*domain.Speech, error) {
	out, err := c.polly.SynthesizeSpeech(ctx, &polly.SynthesizeSpeechInput{
		Engine:       c.engine,
		Text:         aws.String(text),
		OutputFormat: c.format,
		VoiceId:      c.voiceID,
		SampleRate:   aws.String(c.sampleRate),
		TextType:     types.TextTypeText,
	})
	if err != nil {
		return nil, fmt.Errorf("polly synthesize speech: %w", err)
	}
	defer out.AudioStream.Close()

	audio, err := io.ReadAll(out.AudioStream)
	if err != nil {
		return nil, fmt.Errorf("reading polly audio stream: %w", err)
	}

	return &domain.Speech{Data: audio, Format: string(c.format)}, nil
}
