package stt

import (
	"context"
	"strings"

	speech "cloud.google.com/go/speech/apiv1"
	speechpb "cloud.google.com/go/speech/apiv1/speechpb"
	"google.golang.org/api/option"
)

// GoogleSpeech transcribes short voice comments with synchronous recognition.
// Clients are expected to upload 16 kHz LINEAR16 WAV.
type GoogleSpeech struct {
	c *speech.Client

	Encoding     speechpb.RecognitionConfig_AudioEncoding
	SampleRateHz int32
}

func NewGoogleSpeech(ctx context.Context, credentialsFile string) (*GoogleSpeech, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	c, err := speech.NewClient(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &GoogleSpeech{
		c:            c,
		Encoding:     speechpb.RecognitionConfig_LINEAR16,
		SampleRateHz: 16000,
	}, nil
}

func (g *GoogleSpeech) Close() error { return g.c.Close() }

// Transcribe joins the best alternative of every result, so a comment spoken
// over several sentences comes back whole. Confidence is the mean.
func (g *GoogleSpeech) Transcribe(ctx context.Context, audio []byte, language string) (string, float64, error) {
	resp, err := g.c.Recognize(ctx, &speechpb.RecognizeRequest{
		Config: &speechpb.RecognitionConfig{
			Encoding:                   g.Encoding,
			SampleRateHertz:            g.SampleRateHz,
			LanguageCode:               NormalizeLanguage(language),
			EnableAutomaticPunctuation: true,
		},
		Audio: &speechpb.RecognitionAudio{
			AudioSource: &speechpb.RecognitionAudio_Content{Content: audio},
		},
	})
	if err != nil {
		return "", 0, err
	}
	return joinResults(resp.Results)
}

func joinResults(results []*speechpb.SpeechRecognitionResult) (string, float64, error) {
	var parts []string
	var total float64
	for _, r := range results {
		var best *speechpb.SpeechRecognitionAlternative
		for _, alt := range r.Alternatives {
			if alt.Transcript != "" && (best == nil || alt.Confidence > best.Confidence) {
				best = alt
			}
		}
		if best != nil {
			parts = append(parts, strings.TrimSpace(best.Transcript))
			total += float64(best.Confidence)
		}
	}
	if len(parts) == 0 {
		return "", 0, nil
	}
	return strings.Join(parts, " "), total / float64(len(parts)), nil
}
