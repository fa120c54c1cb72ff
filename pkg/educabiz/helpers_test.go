package educabiz

import (
	"context"
	"testing"
	"time"

	"educabiz-exporter/internal/testportal"
	"educabiz-exporter/pkg/logger"

	"github.com/stretchr/testify/require"
)

func startPortal(t *testing.T) *testportal.Portal {
	t.Helper()
	p := testportal.New().Start()
	t.Cleanup(p.Close)
	return p
}

func newPortalClient(t *testing.T, p *testportal.Portal) *Client {
	t.Helper()
	c, err := NewClient(p.URL(), 5*time.Second, WithLogger(logger.NewNopLogger()))
	require.NoError(t, err)
	return c
}

func login(t *testing.T, c *Client, p *testportal.Portal) Session {
	t.Helper()
	s, err := NewAuthenticator(c, nil).Authenticate(context.Background(), p.Username, p.Password)
	require.NoError(t, err)
	return s
}

func pics(pairs ...string) []testportal.Picture {
	out := make([]testportal.Picture, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, testportal.Picture{ShortDate: pairs[i], ImgLargeID: pairs[i+1]})
	}
	return out
}

type recordingObserver struct {
	starts  [][2]int
	updates []int
	finish  int
}

func (r *recordingObserver) Start(total, processed int) { r.starts = append(r.starts, [2]int{total, processed}) }
func (r *recordingObserver) Update(processed int)       { r.updates = append(r.updates, processed) }
func (r *recordingObserver) Finish()                    { r.finish++ }
