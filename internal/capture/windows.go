package capture

import "github.com/bryanchriswhite/screencap/internal/recbuf"

// ListWindows snapshots every capturable top-level window in the OS's
// enumeration order (front to back on most systems). With
// excludeCurrentProcess set, windows owned by this process are dropped.
func (e *Engine) ListWindows(excludeCurrentProcess bool) ([]Window, error) {
	const op = "list_windows"

	buf, err := recbuf.New[Window](initialCapacity(initialWindowCapacity, e.maxRecords), e.maxRecords)
	if err != nil {
		return nil, newError(op, AllocFailed, err)
	}

	selfPID := e.platform.CurrentProcessID()
	skipped := make(map[Exclusion]int)

	var appendErr error
	enumErr := e.platform.EnumWindows(func(h Handle) bool {
		c := e.policy.Evaluate(e.platform, h, selfPID, excludeCurrentProcess)
		if c.Exclusion != Included {
			skipped[c.Exclusion]++
			return true
		}

		w := Window{
			Handle: h,
			PID:    c.PID,
			Title:  e.platform.Title(h),
			Bounds: c.Bounds,
		}
		if name, err := e.platform.ProcessName(c.PID); err == nil {
			w.AppName = name
		} else {
			e.log.Debug().Err(err).Uint32("pid", c.PID).Msg("Process name unavailable")
		}

		if appendErr = buf.Append(w); appendErr != nil {
			return false
		}
		return true
	})

	if appendErr != nil {
		buf.Release()
		return nil, newError(op, AllocFailed, appendErr)
	}
	if enumErr != nil {
		e.log.Warn().Err(enumErr).Int("collected", buf.Len()).Msg("Window enumeration reported an error")
	}

	ev := e.log.Debug()
	for reason, n := range skipped {
		ev = ev.Int(reason.String(), n)
	}
	ev.Int("included", buf.Len()).Msg("Filtered windows")

	windows := buf.Finalize()
	if len(windows) == 0 {
		return nil, newError(op, NoWindows, enumErr)
	}
	for i := range windows {
		windows[i].Z = len(windows) - 1 - i
	}
	return windows, nil
}

// LocateWindows sets Monitor on each window to the display containing its
// center. Windows are left as they are when no monitor can be listed.
func (e *Engine) LocateWindows(windows []Window) {
	monitors, err := e.ListMonitors()
	if err != nil {
		e.log.Debug().Err(err).Msg("Cannot place windows on monitors")
		return
	}
	for i := range windows {
		if m, ok := windows[i].CurrentMonitor(monitors); ok {
			windows[i].Monitor = m.Handle
		}
	}
}
