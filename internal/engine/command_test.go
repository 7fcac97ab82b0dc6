package engine

import (
	"encoding/json"
	"testing"

	"github.com/MJE43/nh-parity-go/internal/world"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		in      string
		want    Command
		wantErr bool
	}{
		{"move e", Move(world.East), false},
		{"  MOVE  NorthWest ", Move(world.NorthWest), false},
		{"dig n", Dig(world.North), false},
		{"dig down", Dig(world.Down), false},
		{"search", Search(), false},
		{",", PickUp(), false},
		{"drop B", Drop('B'), false},
		{"rest", Rest(), false},
		{".", Rest(), false},
		{"quit", Quit(), false},
		{"", Command{}, true},
		{"move", Command{}, true},
		{"move up", Command{}, true},
		{"fly e", Command{}, true},
		{"search here", Command{}, true},
		{"drop ab", Command{}, true},
		{"drop 1", Command{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCommand(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseCommand(%q) = %v, want error", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseCommand(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseCommand(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestCommandTextForm(t *testing.T) {
	cmds := []Command{Move(world.SouthWest), Dig(world.East), Drop('a'), Search(), PickUp(), Rest(), Quit()}

	data, err := json.Marshal(cmds)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `["move sw","dig e","drop a","search","pickup","rest","quit"]`
	if string(data) != want {
		t.Fatalf("got %s, want %s", data, want)
	}

	var back []Command
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for i := range cmds {
		if back[i] != cmds[i] {
			t.Errorf("command %d: got %v, want %v", i, back[i], cmds[i])
		}
	}

	if _, err := json.Marshal(Command{Kind: CmdMove}); err == nil {
		t.Error("marshalling an invalid command should fail")
	}
}
