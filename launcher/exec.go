package launcher

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"syscall"

	"github.com/go-errors/errors"
	"github.com/google/shlex"

	"iwdmenu/icons"
	"iwdmenu/menu"
)

type Config struct {
	Kind Kind
	// Command is the template for Custom, ignored otherwise.
	Command string
	// IconKind tells launchers with icon support which style the menu
	// lines carry.
	IconKind icons.Kind
	Logger   Logger
}

// Exec is the subprocess-backed Selector. One child is spawned per menu
// step; it gets its own process group so cancellation kills any shell
// children along with it.
type Exec struct {
	log      Logger
	kind     Kind
	command  string
	iconKind icons.Kind
}

var _ Selector = (*Exec)(nil)

func NewExec(config *Config) (*Exec, error) {
	if config.Kind == Custom && strings.TrimSpace(config.Command) == "" {
		return nil, errors.New("custom launcher requires a command template")
	}

	selector := &Exec{
		kind:     config.Kind,
		command:  config.Command,
		iconKind: config.IconKind,
	}

	if config.Logger != nil {
		selector.log = config.Logger
	} else {
		selector.log = noopLogger{}
	}

	return selector, nil
}

// Select runs one selector invocation. Dismissals of every flavor (empty
// output, non-zero exit, spawn failure) come back as ErrDismissed; only a
// cancelled context is surfaced as its own error.
func (e *Exec) Select(ctx context.Context, page *menu.Page) (string, error) {
	argv, err := e.buildArgv(page)
	if err != nil {
		e.log.Warnf("Could not build launcher command: %v", err)
		return "", ErrDismissed
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Stdin = strings.NewReader(page.Input())

	var stdout bytes.Buffer
	cmd.Stdout = &stdout

	if err := cmd.Start(); err != nil {
		e.log.Warnf("Could not spawn %v: %v", argv[0], err)
		return "", ErrDismissed
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
		<-done
		return "", ctx.Err()
	case err := <-done:
		if err != nil {
			e.log.Debugf("Launcher exited: %v", err)
			return "", ErrDismissed
		}
	}

	output := strings.TrimSpace(stdout.String())
	if output == "" {
		return "", ErrDismissed
	}

	// Only the first line counts as the selection.
	if i := strings.IndexByte(output, '\n'); i >= 0 {
		output = strings.TrimSpace(output[:i])
	}

	return output, nil
}

func (e *Exec) buildArgv(page *menu.Page) ([]string, error) {
	switch e.kind {
	case Dmenu:
		argv := []string{"dmenu"}
		if page.Prompt != "" {
			argv = append(argv, "-p", page.Prompt+": ")
		}
		return argv, nil

	case Rofi:
		argv := []string{"rofi", "-m", "-1", "-dmenu"}
		if e.iconKind == icons.Xdg {
			argv = append(argv, "-show-icons")
		}
		if page.Prompt != "" {
			argv = append(argv, "-theme-str", fmt.Sprintf("entry { placeholder: %q; }", page.Prompt))
		}
		if page.Password {
			argv = append(argv, "-password")
		}
		return argv, nil

	case Fuzzel:
		argv := []string{"fuzzel", "-d"}
		if e.iconKind == icons.Font {
			argv = append(argv, "-I")
		}
		if page.Prompt != "" {
			argv = append(argv, "--placeholder", page.Prompt)
		}
		if page.Password {
			argv = append(argv, "--password")
		}
		return argv, nil

	case Walker:
		argv := []string{"walker", "-d", "-k"}
		if page.Prompt != "" {
			argv = append(argv, "-p", page.Prompt)
		}
		if page.Password {
			argv = append(argv, "-y")
		}
		return argv, nil

	case Custom:
		resolved := Resolve(e.command, Context{
			Prompt:   page.Prompt,
			Password: page.Password,
		})

		argv, err := shlex.Split(resolved)
		if err != nil {
			return nil, errors.Errorf("could not split command %q: %v", resolved, err)
		}
		if len(argv) == 0 {
			return nil, errors.New("custom launcher command is empty")
		}
		return argv, nil
	}

	return nil, errors.Errorf("unknown launcher %q", e.kind)
}
