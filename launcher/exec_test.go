package launcher

import (
	"context"
	"reflect"
	"testing"

	"iwdmenu/icons"
	"iwdmenu/menu"
)

func TestBuildArgv(t *testing.T) {
	page := &menu.Page{Prompt: "Wi-Fi"}
	secretPage := &menu.Page{Prompt: "Passphrase", Password: true}

	tests := []struct {
		name string
		exec *Exec
		page *menu.Page
		want []string
	}{
		{
			name: "dmenu with prompt",
			exec: &Exec{kind: Dmenu},
			page: page,
			want: []string{"dmenu", "-p", "Wi-Fi: "},
		},
		{
			name: "rofi with xdg icons",
			exec: &Exec{kind: Rofi, iconKind: icons.Xdg},
			page: page,
			want: []string{"rofi", "-m", "-1", "-dmenu", "-show-icons", "-theme-str", `entry { placeholder: "Wi-Fi"; }`},
		},
		{
			name: "rofi in password mode",
			exec: &Exec{kind: Rofi},
			page: secretPage,
			want: []string{"rofi", "-m", "-1", "-dmenu", "-theme-str", `entry { placeholder: "Passphrase"; }`, "-password"},
		},
		{
			name: "fuzzel in password mode",
			exec: &Exec{kind: Fuzzel, iconKind: icons.Font},
			page: secretPage,
			want: []string{"fuzzel", "-d", "-I", "--placeholder", "Passphrase", "--password"},
		},
		{
			name: "walker in password mode",
			exec: &Exec{kind: Walker},
			page: secretPage,
			want: []string{"walker", "-d", "-k", "-p", "Passphrase", "-y"},
		},
		{
			name: "custom splits after substitution",
			exec: &Exec{kind: Custom, command: `wofi --dmenu -p "{placeholder}"`},
			page: page,
			want: []string{"wofi", "--dmenu", "-p", "Wi-Fi"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.exec.log = noopLogger{}
			got, err := tt.exec.buildArgv(tt.page)
			if err != nil {
				t.Fatalf("buildArgv returned error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("buildArgv = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewExecCustomRequiresCommand(t *testing.T) {
	if _, err := NewExec(&Config{Kind: Custom}); err == nil {
		t.Fatal("expected an error for a custom launcher without a command")
	}
}

func TestExecSelectReadsFirstLine(t *testing.T) {
	selector, err := NewExec(&Config{Kind: Custom, Command: "head -n 1"})
	if err != nil {
		t.Fatal(err)
	}

	page := &menu.Page{Lines: []menu.Line{
		{Text: "Cafe"},
		{Text: "Office"},
	}}

	output, err := selector.Select(context.Background(), page)
	if err != nil {
		t.Fatalf("Select returned error: %v", err)
	}
	if output != "Cafe" {
		t.Fatalf("Select = %q, want %q", output, "Cafe")
	}
}

func TestExecSelectNonZeroExitIsDismissal(t *testing.T) {
	selector, err := NewExec(&Config{Kind: Custom, Command: "false"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = selector.Select(context.Background(), &menu.Page{Lines: []menu.Line{{Text: "Cafe"}}})
	if err != ErrDismissed {
		t.Fatalf("Select error = %v, want ErrDismissed", err)
	}
}

func TestExecSelectSpawnFailureIsDismissal(t *testing.T) {
	selector, err := NewExec(&Config{Kind: Custom, Command: "/nonexistent/launcher"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = selector.Select(context.Background(), &menu.Page{Lines: []menu.Line{{Text: "Cafe"}}})
	if err != ErrDismissed {
		t.Fatalf("Select error = %v, want ErrDismissed", err)
	}
}
