package output

import (
	"errors"
	"fmt"
	"os"
	"time"

	"frida-keeper/controllers"
	"frida-keeper/internal/models"
	"frida-keeper/internal/rpc"
	"frida-keeper/services"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"
)

var ErrFlowFailed = errors.New("operation failed")

// downloadView 终端下显示进度条，重定向时每10%打印一行
type downloadView struct {
	tty     bool
	bar     *progressbar.ProgressBar
	printed int
}

func newDownloadView() *downloadView {
	fd := os.Stdout.Fd()
	return &downloadView{tty: isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd), printed: -1}
}

func (v *downloadView) update(p models.DownloadProgress) {
	if !v.tty {
		if p.Indeterminate {
			return
		}
		if step := p.Percent / 10; step > v.printed {
			v.printed = step
			fmt.Printf("Downloading: %d%% (%s / %s)\n", p.Percent, humanize.Bytes(uint64(p.Downloaded)), humanize.Bytes(uint64(p.Total)))
		}
		return
	}
	if v.bar == nil {
		total := p.Total
		if p.Indeterminate || total <= 0 {
			total = -1
		}
		v.bar = progressbar.DefaultBytes(total, "Downloading")
	}
	v.bar.Set64(p.Downloaded)
}

func (v *downloadView) finish() {
	if v.bar != nil {
		v.bar.Finish()
		fmt.Println()
		v.bar = nil
	}
}

/**
 * Print the events of a local flow until it ends
 * @param {*services.Subscription} sub - Subscription taken before the flow was started
 * @param {string} flowID - Flow to follow, events of other flows are skipped
 * @returns {error} The flow error when it fails
 */
func FollowLocal(sub *services.Subscription, flowID string) error {
	return follow(sub, func(id string) bool { return id == flowID }, 0)
}

// FollowNext 跟随excluded之后开始的第一个流程，例如切换版本后的重启
func FollowNext(sub *services.Subscription, excluded string, wait time.Duration) error {
	current := ""
	return follow(sub, func(id string) bool {
		if current == "" && id != excluded {
			current = id
		}
		return id == current
	}, wait)
}

func follow(sub *services.Subscription, match func(id string) bool, wait time.Duration) error {
	view := newDownloadView()
	defer view.finish()
	var timeout <-chan time.Time
	if wait > 0 {
		timeout = time.After(wait)
	}
	for {
		var ev services.Event
		var ok bool
		select {
		case ev, ok = <-sub.Events():
			if !ok {
				return errors.New("event stream closed before the operation ended")
			}
		case <-timeout:
			return errors.New("timed out waiting for the operation to start")
		}
		if !match(ev.FlowID) {
			continue
		}
		timeout = nil
		switch ev.Kind {
		case services.EventDownload:
			view.update(*ev.Download)
		case services.EventProgress:
			view.finish()
			fmt.Println(ev.Message)
		case services.EventSuccess:
			view.finish()
			fmt.Println(ev.Message)
			return nil
		case services.EventError:
			view.finish()
			if ev.Err != nil {
				return ev.Err
			}
			return errors.New(ev.Message)
		}
	}
}

/**
 * Poll the daemon session and print its log until the flow leaves the busy states
 * @description
 * - Returns as soon as another flow took over the session
 */
func FollowRemote(client rpc.HTTPClient, flowID string) error {
	view := newDownloadView()
	defer view.finish()
	printed := 0
	ticker := time.NewTicker(300 * time.Millisecond)
	defer ticker.Stop()
	for {
		resp, err := client.Get(controllers.API_PREFIX+"/session", nil)
		if err != nil {
			return err
		}
		var st models.SessionState
		if err := resp.Decode(&st); err != nil {
			return err
		}
		if st.FlowID != flowID {
			return nil
		}
		if st.Status == models.StatusInstalling && st.Download.Downloaded > 0 {
			view.update(st.Download)
		}
		for ; printed < len(st.Messages); printed++ {
			view.finish()
			fmt.Println(st.Messages[printed])
		}
		if !st.Status.Busy() {
			if st.Status == models.StatusFailed {
				return ErrFlowFailed
			}
			return nil
		}
		<-ticker.C
	}
}
