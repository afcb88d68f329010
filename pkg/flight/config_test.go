package flight

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/navio.go/pkg/pwm"
	"github.com/robotalks/navio.go/pkg/rc"
)

func TestConfigValidate(t *testing.T) {
	require.NoError(t, NewConfig().Validate())

	cases := map[string]func(*Config){
		"zero interval":    func(c *Config) { c.Interval = 0 },
		"slow interval":    func(c *Config) { c.Interval = 101 * time.Millisecond },
		"zero frequency":   func(c *Config) { c.PWMFrequency = 0 },
		"inverted range":   func(c *Config) { c.Range = pwm.Range{Min: 1600, Max: 1000} },
		"cut threshold":    func(c *Config) { c.Safety.CutThreshold = 0 },
		"auto threshold":   func(c *Config) { c.AutoThreshold = -1 },
		"shared channel":   func(c *Config) { c.Channels.Mode = c.Channels.Safety },
		"negative channel": func(c *Config) { c.Channels.Yaw = -1 },
		"negative report":  func(c *Config) { c.ReportEvery = -1 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			conf := NewConfig()
			mutate(conf)
			require.Error(t, conf.Validate())
		})
	}

	conf := NewConfig()
	conf.Interval = MaxInterval
	require.NoError(t, conf.Validate())
}

func TestLoadProfile(t *testing.T) {
	fn := filepath.Join(t.TempDir(), "profile.yaml")
	require.NoError(t, os.WriteFile(fn, []byte(`
interval: 20ms
range:
  max: 1800
gains:
  yaw: 0.25
safety:
  hold_while_throttle: false
channels:
  mode: 6
`), 0644))

	conf := NewConfig()
	conf.Profile = fn
	require.NoError(t, conf.LoadProfile())
	require.NoError(t, conf.Validate())
	require.Equal(t, 20*time.Millisecond, conf.Interval)
	require.Equal(t, pwm.Range{Min: 1000, Max: 1800}, conf.Range)
	require.Equal(t, 0.10, conf.Gains.Roll)
	require.Equal(t, 0.25, conf.Gains.Yaw)
	require.False(t, conf.Safety.HoldWhileThrottle)
	require.Equal(t, rc.Sample(1750), conf.Safety.CutThreshold)
	require.Equal(t, 6, conf.Channels.Mode)
	require.Equal(t, 4, conf.Channels.Safety)

	conf = NewConfig()
	require.NoError(t, conf.LoadProfile())
	conf.Profile = filepath.Join(t.TempDir(), "missing.yaml")
	require.Error(t, conf.LoadProfile())
	require.Error(t, conf.ParseProfile([]byte("interval: [")))
}

func TestSampleFlag(t *testing.T) {
	var s rc.Sample
	v := sampleValue{&s}
	require.NoError(t, v.Set("1750"))
	require.Equal(t, rc.Sample(1750), s)
	require.Equal(t, "1750", v.String())
	for _, bad := range []string{"17x50", "1750us", "", " 1750", "1.5"} {
		require.Error(t, v.Set(bad), bad)
	}
	require.Equal(t, rc.Sample(1750), s)
	require.Empty(t, sampleValue{}.String())
}
