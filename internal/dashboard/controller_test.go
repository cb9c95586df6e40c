package dashboard

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"aquarium_dashboard/internal/apperr"
	"aquarium_dashboard/internal/feeding"
	"aquarium_dashboard/internal/models"
	"aquarium_dashboard/internal/scheduler"
)

func TestStart_RendersMonitoringPanelsAndArmsInterval(t *testing.T) {
	f := newFixture(t, models.ViewMonitoring)
	f.ctrl.Start(context.Background())

	if !f.ctrl.Initialized() {
		t.Fatalf("controller not initialized")
	}
	f.sink.snapshot(func(r *recordingSink) {
		if len(r.series[models.ChannelTemperature]) != 2 {
			t.Fatalf("temperature series: %+v", r.series)
		}
		if len(r.alerts) == 0 || r.alerts[len(r.alerts)-1][0].Severity != models.SeveritySuccess {
			t.Fatalf("alerts: %+v", r.alerts)
		}
		if r.placeholders[models.ChannelProfile] {
			t.Fatalf("profile placeholder left on")
		}
	})
	if f.clock.Pending() != 1 {
		t.Fatalf("expected only the refresh interval armed, got %d timers", f.clock.Pending())
	}

	f.clock.Advance(time.Minute)
	f.clock.Advance(time.Minute)
	if p, r, fe := f.gw.counts(); p != 3 || r != 3 || fe != 0 {
		t.Fatalf("calls after two ticks: profile=%d readings=%d feeding=%d", p, r, fe)
	}
}

func TestRefreshCycle_IndependentFailureDomains(t *testing.T) {
	f := newFixture(t, models.ViewMonitoring)
	f.gw.set(func(s *stubGateway) { s.profileErr = errDown })

	f.ctrl.Start(context.Background())
	if !f.ctrl.Initialized() {
		t.Fatalf("one successful resource is enough to initialize")
	}
	if _, ok := f.store.Window(); !ok {
		t.Fatalf("sensor data blocked by profile failure")
	}
	f.sink.snapshot(func(r *recordingSink) {
		if !r.placeholders[models.ChannelProfile] {
			t.Fatalf("profile placeholder not shown")
		}
		if r.placeholders[models.ChannelTemperature] {
			t.Fatalf("temperature placeholder shown despite data")
		}
	})
	if f.ctrl.profilePoller.Phase() != scheduler.PhaseRetryScheduled {
		t.Fatalf("profile retry not scheduled: %s", f.ctrl.profilePoller.Phase())
	}
	if f.ctrl.sensorPoller.Phase() != scheduler.PhaseIdle {
		t.Fatalf("sensor should be idle: %s", f.ctrl.sensorPoller.Phase())
	}

	err := f.ctrl.RefreshCycle(context.Background())
	if !errors.Is(err, apperr.ErrHTTP) {
		t.Fatalf("expected the profile error to be reported, got %v", err)
	}
}

func TestRefreshCycle_RetryFiresAfterDelay(t *testing.T) {
	f := newFixture(t, models.ViewMonitoring)
	f.gw.set(func(s *stubGateway) { s.profileErr = errDown })
	f.ctrl.Start(context.Background())

	f.gw.set(func(s *stubGateway) { s.profileErr = nil })
	f.clock.Advance(59 * time.Second)
	if p, _, _ := f.gw.counts(); p != 1 {
		t.Fatalf("retry fired early: %d", p)
	}
	// retry and first interval tick fall due together
	f.clock.Advance(time.Second)
	if _, ok := f.store.Profile(); !ok {
		t.Fatalf("profile not recovered by retry")
	}
}

func TestStart_BothFailRetriesWholeInit(t *testing.T) {
	f := newFixture(t, models.ViewMonitoring)
	f.gw.set(func(s *stubGateway) {
		s.profileErr = errDown
		s.readingsErr = errDown
	})

	f.ctrl.Start(context.Background())
	if f.ctrl.Initialized() {
		t.Fatalf("initialized despite both fetches failing")
	}
	if f.clock.Pending() != 1 {
		t.Fatalf("expected only the init retry armed, got %d", f.clock.Pending())
	}

	f.clock.Advance(5 * time.Second)
	if p, r, _ := f.gw.counts(); p != 2 || r != 2 {
		t.Fatalf("init retry did not refetch: profile=%d readings=%d", p, r)
	}
	if f.ctrl.Initialized() {
		t.Fatalf("still failing, must not initialize")
	}

	f.gw.set(func(s *stubGateway) {
		s.profileErr = nil
		s.readingsErr = nil
	})
	f.clock.Advance(5 * time.Second)
	if !f.ctrl.Initialized() {
		t.Fatalf("init retry did not recover")
	}
	f.clock.Advance(time.Minute)
	if p, r, _ := f.gw.counts(); p != 4 || r != 4 {
		t.Fatalf("interval not armed after recovery: profile=%d readings=%d", p, r)
	}
}

func TestSetTimeline_MidFlightResponseDiscarded(t *testing.T) {
	f := newFixture(t, models.ViewMonitoring)
	g := newGate()
	f.gw.set(func(s *stubGateway) {
		s.readingsHook = func(call int, tl models.Timeline) {
			if call == 1 {
				g.block()
			}
		}
	})

	done := make(chan error, 1)
	go func() { done <- f.ctrl.RefreshCycle(context.Background()) }()
	g.wait(t)

	if err := f.ctrl.SetTimeline(context.Background(), models.TimelineWeek); err != nil {
		t.Fatalf("SetTimeline: %v", err)
	}
	close(g.release)
	if err := <-done; err != nil {
		t.Fatalf("refresh: %v", err)
	}

	w, ok := f.store.Window()
	if !ok || w.Timeline != models.TimelineWeek {
		t.Fatalf("final window: %+v (ok=%v)", w, ok)
	}
	f.gw.set(func(s *stubGateway) {
		if s.readingsCalls != 2 || s.timelines[1] != models.TimelineWeek {
			t.Fatalf("expected one follow-up fetch for week, got %v", s.timelines)
		}
	})
	f.sink.snapshot(func(r *recordingSink) {
		pts := r.series[models.ChannelTemperature]
		if len(pts) == 0 || pts[0].Y != tempFor(models.TimelineWeek) {
			t.Fatalf("stale series rendered: %+v", pts)
		}
	})
}

func TestSetTimeline_SameValueDoesNotFetch(t *testing.T) {
	f := newFixture(t, models.ViewMonitoring)
	f.ctrl.Start(context.Background())

	if err := f.ctrl.SetTimeline(context.Background(), models.TimelineDay); err != nil {
		t.Fatalf("SetTimeline: %v", err)
	}
	if _, r, _ := f.gw.counts(); r != 1 {
		t.Fatalf("no-op timeline switch fetched: %d", r)
	}
}

func TestSetTimeline_DisposesChartsBeforeRefetch(t *testing.T) {
	f := newFixture(t, models.ViewMonitoring)
	f.ctrl.Start(context.Background())

	if err := f.ctrl.SetTimeline(context.Background(), models.TimelineMonth); err != nil {
		t.Fatalf("SetTimeline: %v", err)
	}
	f.sink.snapshot(func(r *recordingSink) {
		if len(r.disposed) != len(models.SeriesChannels) {
			t.Fatalf("disposed: %v", r.disposed)
		}
		if r.series[models.ChannelTemperature][0].Y != tempFor(models.TimelineMonth) {
			t.Fatalf("month series not rendered")
		}
	})
}

func TestSensorFetch_OverlappingTriggersCoalesce(t *testing.T) {
	f := newFixture(t, models.ViewMonitoring)
	g := newGate()
	f.gw.set(func(s *stubGateway) {
		s.readingsHook = func(call int, tl models.Timeline) {
			if call == 1 {
				g.block()
			}
		}
	})

	done := make(chan error, 1)
	go func() { done <- f.ctrl.RefreshCycle(context.Background()) }()
	g.wait(t)

	// an auto-refresh tick while the first fetch is in flight
	if err := f.ctrl.RefreshCycle(context.Background()); err != nil {
		t.Fatalf("overlapping cycle: %v", err)
	}
	close(g.release)
	<-done

	if _, r, _ := f.gw.counts(); r != 1 {
		t.Fatalf("expected exactly one readings call, got %d", r)
	}
}

func TestTeardown_CancelsTimersAndIgnoresLateResults(t *testing.T) {
	f := newFixture(t, models.ViewMonitoring)
	f.ctrl.Start(context.Background())

	g := newGate()
	f.gw.set(func(s *stubGateway) {
		s.readingsHook = func(call int, tl models.Timeline) {
			if call == 2 {
				g.block()
			}
		}
	})
	done := make(chan error, 1)
	go func() { done <- f.ctrl.RefreshCycle(context.Background()) }()
	g.wait(t)

	f.ctrl.Teardown()
	var before int
	f.sink.snapshot(func(r *recordingSink) {
		before = r.seriesCalls
		if len(r.disposed) != len(models.SeriesChannels) {
			t.Fatalf("charts not released: %v", r.disposed)
		}
	})
	if f.clock.Pending() != 0 {
		t.Fatalf("timers left armed: %d", f.clock.Pending())
	}

	close(g.release)
	<-done
	f.sink.snapshot(func(r *recordingSink) {
		if r.seriesCalls != before {
			t.Fatalf("late response rendered after teardown")
		}
	})

	f.clock.Advance(time.Hour)
	if p, _, _ := f.gw.counts(); p != 2 {
		t.Fatalf("fetches after teardown: %d", p)
	}
	if err := f.ctrl.RefreshCycle(context.Background()); !errors.Is(err, ErrTornDown) {
		t.Fatalf("expected ErrTornDown, got %v", err)
	}
}

func TestFeedingView_CycleFetchesEventsOnly(t *testing.T) {
	f := newFixture(t, models.ViewFeeding)
	f.gw.set(func(s *stubGateway) {
		s.events = []models.FeedingEvent{
			{TankID: "t1", Timestamp: "a", FeedTimeScheduled: epoch.Add(time.Hour), QuantityGrams: 2, Status: models.FeedingPending},
			{TankID: "t1", Timestamp: "b", FeedTimeScheduled: epoch.Add(-time.Hour), QuantityGrams: 1, Status: models.FeedingSuccess},
		}
	})

	f.ctrl.Start(context.Background())
	f.clock.Advance(time.Minute)

	if p, r, fe := f.gw.counts(); p != 0 || r != 0 || fe != 2 {
		t.Fatalf("feeding view calls: profile=%d readings=%d feeding=%d", p, r, fe)
	}
	snap := f.ctrl.Snapshot()
	if len(snap.Pending) != 1 || !snap.Pending[0].Editable || len(snap.History) != 1 || snap.History[0].Editable {
		t.Fatalf("feeding rows: %+v / %+v", snap.Pending, snap.History)
	}
}

func TestSetView_RunsNewCycle(t *testing.T) {
	f := newFixture(t, models.ViewMonitoring)
	f.ctrl.Start(context.Background())

	if err := f.ctrl.SetView(context.Background(), models.ViewFeeding); err != nil {
		t.Fatalf("SetView: %v", err)
	}
	if _, _, fe := f.gw.counts(); fe != 1 {
		t.Fatalf("feeding events not fetched on view switch: %d", fe)
	}
	f.sink.snapshot(func(r *recordingSink) {
		if r.feedings != 1 {
			t.Fatalf("feeding tables not rendered")
		}
	})
}

func TestSaveSettings(t *testing.T) {
	f := newFixture(t, models.ViewMonitoring)
	f.ctrl.Start(context.Background())

	bad := models.TankProfile{VolumeLiters: floatPtr(-1)}
	if err := f.ctrl.SaveSettings(context.Background(), bad); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	f.gw.set(func(s *stubGateway) {
		if s.saveCalls != 0 {
			t.Fatalf("invalid settings reached the gateway")
		}
	})

	good := models.TankProfile{VolumeLiters: floatPtr(150), AppropriateWaterLevel: floatPtr(80), FishCounts: models.FishCounts{Large: 3}}
	if err := f.ctrl.SaveSettings(context.Background(), good); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	p, ok := f.store.Profile()
	if !ok || *p.VolumeLiters != 150 || p.FishCounts.Large != 3 || p.TankID != "t1" {
		t.Fatalf("profile not replaced: %+v", p)
	}
	if pc, _, _ := f.gw.counts(); pc != 2 {
		t.Fatalf("profile not re-fetched after save: %d", pc)
	}

	f.gw.set(func(s *stubGateway) { s.saveErr = apperr.API("save", 400, "volume too large") })
	if err := f.ctrl.SaveSettings(context.Background(), good); err == nil || err.Error() != "volume too large" {
		t.Fatalf("expected verbatim api error, got %v", err)
	}
	f.sink.snapshot(func(r *recordingSink) {
		last := r.notices[len(r.notices)-1]
		if last.Level != "error" || last.Message != "volume too large" {
			t.Fatalf("notice: %+v", last)
		}
	})
}

func TestPredict(t *testing.T) {
	f := newFixture(t, models.ViewMonitoring)
	if _, err := f.ctrl.Predict(context.Background(), 2); !errors.Is(err, apperr.ErrValidation) {
		t.Fatalf("prediction without profile: %v", err)
	}

	f.ctrl.Start(context.Background())
	pred, err := f.ctrl.Predict(context.Background(), 2)
	if err != nil {
		t.Fatalf("Predict: %v", err)
	}
	if pred.AmmoniaPPM != 0.12 || !pred.RequestedAt.Equal(epoch) {
		t.Fatalf("prediction: %+v", pred)
	}
	f.gw.set(func(s *stubGateway) {
		if s.lastPredict.TankVolumeLiters != 100 || s.lastPredict.FishSmall != 2 || s.lastPredict.FeedQuantityG != 2 {
			t.Fatalf("request: %+v", s.lastPredict)
		}
		s.predictErr = apperr.API("predict", 500, "model offline")
	})

	if _, err := f.ctrl.Predict(context.Background(), 2); err == nil {
		t.Fatalf("expected prediction error")
	}
	f.sink.snapshot(func(r *recordingSink) {
		if !r.placeholders[models.ChannelPrediction] || len(r.predictions) != 1 {
			t.Fatalf("placeholder=%v predictions=%d", r.placeholders[models.ChannelPrediction], len(r.predictions))
		}
	})
}

func TestRefreshCycle_PredictsForRememberedQuantity(t *testing.T) {
	f := newFixture(t, models.ViewMonitoring)
	f.store.SetDefaults(models.FeedDefaults{FeedTime: "2024-05-01T08:00", QuantityG: 3})

	f.ctrl.Start(context.Background())
	snap := f.ctrl.Snapshot()
	if snap.Prediction == nil || snap.Prediction.QuantityG != 3 {
		t.Fatalf("prediction panel not refreshed: %+v", snap.Prediction)
	}
}

func TestSnapshot(t *testing.T) {
	f := newFixture(t, models.ViewMonitoring)
	f.ctrl.Start(context.Background())

	snap := f.ctrl.Snapshot()
	if snap.TankID != "t1" || snap.Timeline != models.TimelineDay || snap.TickLayout != "15:04" || !snap.Initialized {
		t.Fatalf("snapshot header: %+v", snap)
	}
	if snap.Profile == nil || len(snap.Series[models.ChannelPH]) != 2 || len(snap.Alerts) != 1 {
		t.Fatalf("snapshot body: %+v", snap)
	}
	if snap.Fetching[ResourceSensor] != "idle" {
		t.Fatalf("fetching: %+v", snap.Fetching)
	}
}

func lastAlerts(t *testing.T, f *fixture) []models.Alert {
	t.Helper()
	var last []models.Alert
	f.sink.snapshot(func(r *recordingSink) {
		if len(r.alerts) == 0 {
			t.Fatalf("no alerts rendered")
		}
		last = r.alerts[len(r.alerts)-1]
	})
	return last
}

func TestSensorRetry_RerendersAlerts(t *testing.T) {
	f := newFixture(t, models.ViewMonitoring, func(o *Options) { o.RetryDelay = 10 * time.Second })
	f.gw.set(func(s *stubGateway) { s.readingsErr = errDown })

	f.ctrl.Start(context.Background())
	if got := lastAlerts(t, f); got[0].Severity != models.SeverityInfo {
		t.Fatalf("expected the no-data alert before any reading, got %+v", got)
	}

	f.gw.set(func(s *stubGateway) { s.readingsErr = nil })
	f.clock.Advance(10 * time.Second)

	if _, r, _ := f.gw.counts(); r != 2 {
		t.Fatalf("retry did not refetch readings: %d", r)
	}
	want := f.ctrl.Alerts()
	got := lastAlerts(t, f)
	if want[0].Severity != models.SeveritySuccess || !reflect.DeepEqual(got, want) {
		t.Fatalf("alerts panel out of date after retry: rendered %+v, current %+v", got, want)
	}
}

func TestSetTimeline_QueuedFetchRerendersAlerts(t *testing.T) {
	f := newFixture(t, models.ViewMonitoring)
	f.ctrl.Start(context.Background())

	g := newGate()
	f.gw.set(func(s *stubGateway) {
		s.readingsHook = func(call int, tl models.Timeline) {
			if call == 2 {
				g.block()
			}
		}
	})
	done := make(chan error, 1)
	go func() { done <- f.ctrl.RefreshCycle(context.Background()) }()
	g.wait(t)

	if err := f.ctrl.SetTimeline(context.Background(), models.TimelineWeek); err != nil {
		t.Fatalf("SetTimeline: %v", err)
	}
	close(g.release)
	if err := <-done; err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if err := f.ctrl.sensorPoller.Wait(context.Background()); err != nil {
		t.Fatalf("queued fetch: %v", err)
	}
	if got, want := lastAlerts(t, f), f.ctrl.Alerts(); !reflect.DeepEqual(got, want) || want[0].Severity != models.SeveritySuccess {
		t.Fatalf("alerts after timeline switch: rendered %+v, current %+v", got, want)
	}
}

func TestSaveSettings_WaitsForInFlightProfileFetch(t *testing.T) {
	f := newFixture(t, models.ViewMonitoring)
	f.ctrl.Start(context.Background())

	g := newGate()
	f.gw.set(func(s *stubGateway) {
		s.profileHook = func(call int) {
			if call == 2 {
				g.block()
			}
		}
	})
	refreshed := make(chan error, 1)
	go func() { refreshed <- f.ctrl.RefreshCycle(context.Background()) }()
	g.wait(t)

	good := models.TankProfile{VolumeLiters: floatPtr(150), AppropriateWaterLevel: floatPtr(80)}
	saved := make(chan error, 1)
	go func() { saved <- f.ctrl.SaveSettings(context.Background(), good) }()
	close(g.release)

	if err := <-saved; err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	if pc, _, _ := f.gw.counts(); pc != 3 {
		t.Fatalf("SaveSettings returned before the follow-up profile fetch: %d calls", pc)
	}
	if p := f.ctrl.Snapshot().Profile; p == nil || *p.VolumeLiters != 150 {
		t.Fatalf("snapshot profile not the saved one: %+v", p)
	}
	if got, want := lastAlerts(t, f), f.ctrl.Alerts(); !reflect.DeepEqual(got, want) {
		t.Fatalf("alerts not derived from the saved profile: rendered %+v, current %+v", got, want)
	}
	<-refreshed
}

func TestSaveSettings_AfterTeardown(t *testing.T) {
	f := newFixture(t, models.ViewMonitoring)
	f.ctrl.Start(context.Background())
	f.ctrl.Teardown()

	err := f.ctrl.SaveSettings(context.Background(), models.TankProfile{VolumeLiters: floatPtr(150)})
	if !errors.Is(err, ErrTornDown) {
		t.Fatalf("expected ErrTornDown, got %v", err)
	}
	f.gw.set(func(s *stubGateway) {
		if s.saveCalls != 0 {
			t.Fatalf("settings sent after teardown")
		}
	})
	f.sink.snapshot(func(r *recordingSink) {
		if len(r.notices) != 0 {
			t.Fatalf("notice after teardown: %+v", r.notices)
		}
	})
}

func TestFeedingCreate_ReturnsAfterQueuedResync(t *testing.T) {
	f := newFeedingFixture(t)
	f.ctrl.Start(context.Background())

	g := newGate()
	f.gw.set(func(s *stubGateway) {
		s.feedingHook = func(call int) {
			if call == 2 {
				g.block()
			}
		}
	})
	refreshed := make(chan error, 1)
	go func() { refreshed <- f.ctrl.RefreshCycle(context.Background()) }()
	g.wait(t)

	created := make(chan error, 1)
	go func() {
		created <- f.ctrl.Feeding().Create(context.Background(), feeding.CreateInput{FeedTime: "2024-05-02T08:00", QuantityG: 2})
	}()
	close(g.release)

	if err := <-created; err != nil {
		t.Fatalf("Create: %v", err)
	}
	pending := f.ctrl.Snapshot().Pending
	if len(pending) != 1 || pending[0].QuantityG != 2 {
		t.Fatalf("created row missing when Create returned: %+v", pending)
	}
	<-refreshed
}
