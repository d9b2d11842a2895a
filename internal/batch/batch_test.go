package batch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/niadesignwork-svg/stagecraft/internal/generative"
	"github.com/niadesignwork-svg/stagecraft/internal/log"
	"github.com/niadesignwork-svg/stagecraft/internal/retry"
	"github.com/niadesignwork-svg/stagecraft/pkg/models"
)

// fakeClient scripts one outcome per generation call.
type fakeClient struct {
	generative.Client // panic on anything not overridden

	calls    int
	outcomes []error // nil means success for that call
}

func (f *fakeClient) GenerateImage(ctx context.Context, cfg *models.StageConfig) (*models.ImageArtifact, error) {
	i := f.calls
	f.calls++
	if i < len(f.outcomes) && f.outcomes[i] != nil {
		return nil, f.outcomes[i]
	}
	return &models.ImageArtifact{MIMEType: "image/png", Data: []byte{byte(i)}}, nil
}

func (f *fakeClient) GenerateVariant(ctx context.Context, img *models.ImageArtifact, count int) ([]*models.ImageArtifact, error) {
	i := f.calls
	f.calls++
	if i < len(f.outcomes) && f.outcomes[i] != nil {
		return nil, f.outcomes[i]
	}
	return []*models.ImageArtifact{{MIMEType: "image/png", Data: []byte{byte(i)}}}, nil
}

func (f *fakeClient) GenerateText(ctx context.Context, cfg *models.StageConfig) (*models.DesignMetadata, error) {
	return &models.DesignMetadata{Title: "Test Stage"}, nil
}

func testCoordinator(client generative.Client) *Coordinator {
	policy := retry.NewPolicy(log.NewNop())
	policy.MaxRetries = 0 // exhaust immediately so tests stay fast
	c := NewCoordinator(client, policy, log.NewNop())
	c.SetPause(time.Millisecond)
	return c
}

func validConfig() *models.StageConfig {
	return &models.StageConfig{Elements: "LED cube over b-stage"}
}

func TestGenerate_AllSucceed(t *testing.T) {
	client := &fakeClient{}
	c := testCoordinator(client)

	images, err := c.Generate(context.Background(), validConfig(), 3)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got, want := len(images), 3; got != want {
		t.Errorf("len(images) = %d, want %d", got, want)
	}
}

func TestGenerate_PermanentFailureDoesNotAbortBatch(t *testing.T) {
	// Call 2 fails with a non-rate-limit error; calls 1 and 3 succeed.
	client := &fakeClient{outcomes: []error{nil, errors.New("bad request"), nil}}
	c := testCoordinator(client)

	images, err := c.Generate(context.Background(), validConfig(), 3)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got, want := len(images), 2; got != want {
		t.Errorf("len(images) = %d, want %d", got, want)
	}
	if got, want := client.calls, 3; got != want {
		t.Errorf("calls = %d, want %d (no early abort)", got, want)
	}
}

func TestGenerate_RateLimitExhaustionStopsEarly(t *testing.T) {
	// Call 2 exhausts its retries on a rate limit: calls 3 and 4 must never
	// be attempted, and call 1's image is still returned.
	client := &fakeClient{outcomes: []error{nil, errors.New("429: quota exceeded")}}
	c := testCoordinator(client)

	images, err := c.Generate(context.Background(), validConfig(), 4)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got, want := len(images), 1; got != want {
		t.Errorf("len(images) = %d, want %d", got, want)
	}
	if got, want := client.calls, 2; got != want {
		t.Errorf("calls = %d, want %d (rate limit must stop the loop)", got, want)
	}
}

func TestGenerate_ZeroSuccessesFails(t *testing.T) {
	boom := errors.New("model overloaded")
	client := &fakeClient{outcomes: []error{boom, boom}}
	c := testCoordinator(client)

	_, err := c.Generate(context.Background(), validConfig(), 2)
	if !errors.Is(err, models.ErrNoArtifacts) {
		t.Errorf("Generate() error = %v, want ErrNoArtifacts", err)
	}
}

func TestGenerate_InvalidCount(t *testing.T) {
	c := testCoordinator(&fakeClient{})
	if _, err := c.Generate(context.Background(), validConfig(), 0); !errors.Is(err, models.ErrInvalidCount) {
		t.Errorf("Generate(0) error = %v, want ErrInvalidCount", err)
	}
}

func TestGenerate_ContextCanceledBetweenCalls(t *testing.T) {
	client := &fakeClient{}
	c := testCoordinator(client)
	c.SetPause(time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.Generate(ctx, validConfig(), 2)
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Generate() error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Generate() did not return after cancellation")
	}
}

func TestVariants_PartialFailure(t *testing.T) {
	client := &fakeClient{outcomes: []error{errors.New("flaky"), nil, nil}}
	c := testCoordinator(client)

	variants, err := c.Variants(context.Background(), &models.ImageArtifact{MIMEType: "image/png"}, 3)
	if err != nil {
		t.Fatalf("Variants() error = %v", err)
	}
	if got, want := len(variants), 2; got != want {
		t.Errorf("len(variants) = %d, want %d", got, want)
	}
}

func TestMetadata(t *testing.T) {
	c := testCoordinator(&fakeClient{})
	meta, err := c.Metadata(context.Background(), validConfig())
	if err != nil {
		t.Fatalf("Metadata() error = %v", err)
	}
	if got, want := meta.Title, "Test Stage"; got != want {
		t.Errorf("Title = %q, want %q", got, want)
	}
}
