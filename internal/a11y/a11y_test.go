package a11y

import (
	"reflect"
	"testing"

	"github.com/dgnsrekt/announcer/tts"
	"github.com/spf13/afero"
)

func procFs(t *testing.T, procs map[string]string) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	for pid, comm := range procs {
		if err := afero.WriteFile(fs, "/proc/"+pid+"/comm", []byte(comm+"\n"), 0o444); err != nil {
			t.Fatal(err)
		}
	}
	// non-process entries must be ignored
	if err := afero.WriteFile(fs, "/proc/self/comm", []byte("orca\n"), 0o444); err != nil {
		t.Fatal(err)
	}
	if err := afero.WriteFile(fs, "/proc/uptime", []byte("1.0 1.0\n"), 0o444); err != nil {
		t.Fatal(err)
	}
	return fs
}

func TestActiveServices(t *testing.T) {
	names := []string{"orca", "Fenrir", "speakup"}

	tests := []struct {
		name  string
		procs map[string]string
		want  []string
	}{
		{
			name:  "none running",
			procs: map[string]string{"1": "systemd", "42": "bash"},
			want:  nil,
		},
		{
			name:  "orca running",
			procs: map[string]string{"1": "systemd", "1200": "orca"},
			want:  []string{"orca"},
		},
		{
			name:  "duplicates and case",
			procs: map[string]string{"10": "fenrir", "11": "FENRIR", "12": "orca"},
			want:  []string{"fenrir", "orca"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDetector(procFs(t, tt.procs), tts.ScreenReaderAuto, names)
			got := d.ActiveServices()
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ActiveServices() = %v, want %v", got, tt.want)
			}
			if d.HasActiveSpokenFeedbackService() != (len(tt.want) > 0) {
				t.Errorf("HasActiveSpokenFeedbackService() = %v", !(len(tt.want) > 0))
			}
		})
	}
}

func TestModes(t *testing.T) {
	running := procFs(t, map[string]string{"7": "orca"})
	idle := procFs(t, map[string]string{"7": "bash"})

	tests := []struct {
		mode string
		fs   afero.Fs
		want bool
	}{
		{tts.ScreenReaderOn, idle, true},
		{tts.ScreenReaderOff, running, false},
		{tts.ScreenReaderAuto, running, true},
		{tts.ScreenReaderAuto, idle, false},
	}

	for _, tt := range tests {
		d := NewDetector(tt.fs, tt.mode, []string{"orca"})
		if got := d.HasActiveSpokenFeedbackService(); got != tt.want {
			t.Errorf("mode %s: got %v, want %v", tt.mode, got, tt.want)
		}
	}
}

func TestMissingProc(t *testing.T) {
	d := NewDetector(afero.NewMemMapFs(), tts.ScreenReaderAuto, []string{"orca"})
	if d.HasActiveSpokenFeedbackService() {
		t.Error("expected no screen reader without /proc")
	}
}

func TestStatic(t *testing.T) {
	if !Static(true).HasActiveSpokenFeedbackService() {
		t.Error("Static(true) should report active")
	}
	if Static(false).HasActiveSpokenFeedbackService() {
		t.Error("Static(false) should report inactive")
	}
}
