package capture

import "github.com/bryanchriswhite/screencap/internal/recbuf"

// ListMonitors snapshots every display. Displays whose info cannot be read
// or whose bounds are empty are skipped. DPI lookups that fail fall back to
// the baseline DPI rather than failing the enumeration.
func (e *Engine) ListMonitors() ([]Monitor, error) {
	const op = "list_monitors"

	buf, err := recbuf.New[Monitor](initialCapacity(initialMonitorCapacity, e.maxRecords), e.maxRecords)
	if err != nil {
		return nil, newError(op, AllocFailed, err)
	}

	var (
		appendErr  error
		sawPrimary bool
	)
	enumErr := e.platform.EnumMonitors(func(h Handle) bool {
		info, err := e.platform.MonitorInfo(h)
		if err != nil {
			e.log.Debug().Err(err).Stringer("monitor", h).Msg("Skipping monitor without info")
			return true
		}
		if info.Bounds.Empty() {
			e.log.Debug().Stringer("monitor", h).Msg("Skipping monitor with empty bounds")
			return true
		}

		m := Monitor{
			Handle:      h,
			Name:        info.Name,
			Bounds:      info.Bounds,
			Primary:     info.Primary,
			ScaleFactor: ScaleFromDPI(e.MonitorDPI(h)),
		}
		// At most one display is reported as primary.
		if m.Primary {
			m.Primary = !sawPrimary
			sawPrimary = true
		}
		if appendErr = buf.Append(m); appendErr != nil {
			return false
		}
		return true
	})

	if appendErr != nil {
		buf.Release()
		return nil, newError(op, AllocFailed, appendErr)
	}
	if enumErr != nil {
		e.log.Warn().Err(enumErr).Int("collected", buf.Len()).Msg("Monitor enumeration reported an error")
	}

	monitors := buf.Finalize()
	if len(monitors) == 0 {
		return nil, newError(op, NoMonitors, enumErr)
	}

	e.log.Debug().Int("count", len(monitors)).Msg("Listed monitors")
	return monitors, nil
}

// MonitorDPI returns the effective DPI of a display, or the baseline DPI
// when the system cannot report one.
func (e *Engine) MonitorDPI(h Handle) uint32 {
	dpi, err := e.platform.MonitorDPI(h)
	if err != nil || dpi == 0 {
		e.log.Debug().Err(err).Stringer("monitor", h).Msg("DPI unavailable, using baseline")
		return BaselineDPI
	}
	return dpi
}

// Monitor re-resolves a single display.
func (e *Engine) Monitor(h Handle) (Monitor, error) {
	info, err := e.platform.MonitorInfo(h)
	if err != nil {
		return Monitor{}, newError("monitor_info", NotFound, err)
	}
	return Monitor{
		Handle:      h,
		Name:        info.Name,
		Bounds:      info.Bounds,
		Primary:     info.Primary,
		ScaleFactor: ScaleFromDPI(e.MonitorDPI(h)),
	}, nil
}
