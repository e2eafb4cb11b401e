package suite

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/redfish-tools/usecase-checkers/pkg/checker"
	"github.com/redfish-tools/usecase-checkers/pkg/checker/testutil"
	"github.com/redfish-tools/usecase-checkers/pkg/service"
	"github.com/redfish-tools/usecase-checkers/pkg/util/iostreams"
)

// fakeClient adds the run metadata surface to the checker fake.
type fakeClient struct {
	*testutil.FakeService
}

func (f fakeClient) Info(context.Context) service.Info {
	return service.Info{Product: "Test Service", RedfishVersion: "1.15.0"}
}

func (f fakeClient) NewSession(context.Context, string, string) (checker.Service, error) {
	return f.FakeService, nil
}

func newOptions(t *testing.T, svc *testutil.FakeService) (*Options, *bytes.Buffer) {
	t.Helper()

	var out, errOut bytes.Buffer
	o := NewOptions(iostreams.NewIOStreams(bytes.NewReader(nil), &out, &errOut))
	o.Host = "192.168.1.100"
	o.Username = "admin"
	o.Password = "secret"
	o.ReportDir = filepath.Join(t.TempDir(), "reports")
	o.connect = func(context.Context, service.Config, *zap.SugaredLogger) (serviceClient, error) {
		return fakeClient{svc}, nil
	}

	return o, &out
}

func TestCompleteMergesConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
host: 10.0.0.5
relaxed: true
insecure: true
powerPoll:
  attempts: 3
  interval: 1s
`), 0o600))

	o, _ := newOptions(t, testutil.NewFakeService(testutil.Obj(`{}`)))
	o.Host = ""
	o.ConfigFile = path

	require.NoError(t, o.Complete())

	assert.Equal(t, "10.0.0.5", o.cfg.Host)
	assert.True(t, o.cfg.Relaxed)
	assert.True(t, o.cfg.Insecure)
	assert.Equal(t, 3, o.cfg.PowerPoll.Attempts)
	assert.Equal(t, time.Second, o.cfg.PowerPoll.Interval)

	// All six checkers registered.
	assert.Len(t, o.Registry().ListAll(), 6)
}

func TestFlagsWinOverConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("host: 10.0.0.5\nusername: other\n"), 0o600))

	o, _ := newOptions(t, testutil.NewFakeService(testutil.Obj(`{}`)))
	o.ConfigFile = path

	require.NoError(t, o.Complete())

	assert.Equal(t, "192.168.1.100", o.cfg.Host)
	assert.Equal(t, "admin", o.cfg.Username)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(o *Options)
		wantErr string
	}{
		{name: "valid", mutate: func(*Options) {}},
		{name: "missing host", mutate: func(o *Options) { o.Host = "" }, wantErr: "service address"},
		{name: "missing user", mutate: func(o *Options) { o.Username = "" }, wantErr: "username"},
		{name: "bad security", mutate: func(o *Options) { o.Security = "Sometimes" }, wantErr: "security mode"},
		{name: "bad output", mutate: func(o *Options) { o.OutputFormat = "xml" }, wantErr: "output format"},
		{name: "bad pattern", mutate: func(o *Options) { o.Checks = []string{"["} }, wantErr: "pattern"},
		{name: "bad timeout", mutate: func(o *Options) { o.Timeout = -time.Second }, wantErr: "timeout"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o, _ := newOptions(t, testutil.NewFakeService(testutil.Obj(`{}`)))
			tc.mutate(o)
			require.NoError(t, o.Complete())

			err := o.Validate()
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

func TestRunWritesReport(t *testing.T) {
	// A bare service root: every use case records skips, nothing fails.
	svc := testutil.NewFakeService(testutil.Obj(`{"RedfishVersion": "1.15.0"}`))
	o, out := newOptions(t, svc)

	require.NoError(t, o.Complete())
	require.NoError(t, o.Validate())
	require.NoError(t, o.Run(context.Background()))

	assert.FileExists(t, filepath.Join(o.cfg.ReportDir, "summary.json"))
	assert.True(t, svc.Closed)
	assert.Contains(t, out.String(), "SKIP")
}

func TestRunFailingCheckReturnsError(t *testing.T) {
	// A Managers reference pointing at nothing makes the Ethernet checker
	// record a failure.
	svc := testutil.NewFakeService(testutil.Obj(`{"Managers": {"@odata.id": "/redfish/v1/Managers"}}`))
	o, _ := newOptions(t, svc)
	o.Checks = []string{"manager.ethernet"}

	require.NoError(t, o.Complete())

	err := o.Run(context.Background())
	assert.ErrorIs(t, err, ErrChecksFailed)

	// The report is still written for a failing run.
	assert.FileExists(t, filepath.Join(o.cfg.ReportDir, "summary.json"))
}

func TestRunConnectFailureSkipsReport(t *testing.T) {
	o, _ := newOptions(t, nil)
	o.connect = func(context.Context, service.Config, *zap.SugaredLogger) (serviceClient, error) {
		return nil, service.ErrUnauthorized
	}

	require.NoError(t, o.Complete())

	err := o.Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, service.ErrUnauthorized)
	assert.NoFileExists(t, filepath.Join(o.cfg.ReportDir, "summary.json"))
}
