// Command scoped is the telescope control daemon: it loads the site and
// device configuration, wires the motor-controller transports, and runs
// the cooperative poll loop that drives the mount, dome, focuser, and
// filter wheel state machines over the command-fifo protocol.
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/jmhannon/rigel-master/internal/config"
	"github.com/jmhannon/rigel-master/internal/cover"
	"github.com/jmhannon/rigel-master/internal/daemon"
	"github.com/jmhannon/rigel-master/internal/dome"
	"github.com/jmhannon/rigel-master/internal/domegeom"
	"github.com/jmhannon/rigel-master/internal/filterwheel"
	"github.com/jmhannon/rigel-master/internal/focus"
	"github.com/jmhannon/rigel-master/internal/httpapi"
	"github.com/jmhannon/rigel-master/internal/journal"
	"github.com/jmhannon/rigel-master/internal/kinematics"
	"github.com/jmhannon/rigel-master/internal/motortransport"
	"github.com/jmhannon/rigel-master/internal/mount"
	"github.com/jmhannon/rigel-master/internal/ratelimit"
	"github.com/jmhannon/rigel-master/internal/telshm"
	"github.com/jmhannon/rigel-master/internal/teltypes"
)

func main() {
	configDir := flag.String("config", "/etc/rigel-master", "directory holding telsched.json/telescoped.json/home.json/focus.json/filter.json/dome.json")
	lockPath := flag.String("lock", "/var/run/rigel-master.pid", "single-instance pid/lock file")
	fifoDir := flag.String("fifodir", "/var/run/rigel-master/fifos", "directory for the per-device command fifos")
	virtual := flag.Bool("virtual", false, "use in-process VirtualMotor ports instead of real serial hardware")
	flag.Parse()

	log.Println("===========================================")
	log.Println("  rigel-master telescope control daemon")
	log.Println("===========================================")

	lock, err := daemon.Acquire(*lockPath)
	if err != nil {
		log.Fatalf("failed to acquire single-instance lock: %v", err)
	}
	defer lock.Release()

	cfg, err := config.LoadAll(*configDir)
	if err != nil {
		log.Fatalf("failed to load configuration from %s: %v", *configDir, err)
	}
	log.Printf("configuration loaded from %s", *configDir)
	log.Printf("site: %.4f,%.4f @ %.0fm", cfg.Site.Latitude, cfg.Site.Longitude, cfg.Site.Elevation)

	pub := telshm.New()
	d := daemon.New(cfg, pub)
	d.Mount = buildMount(cfg, *virtual)
	d.Dome = buildDome(cfg, *virtual)
	d.Focus = buildFocus(cfg, *virtual)
	d.Wheel = filterwheel.New(cfg.Filter, nil, false)
	d.Cover = cover.New(nil)
	if *virtual {
		vm := motortransport.NewVirtualMotor(10)
		_ = vm.Open(context.Background())
		d.Cover.Port = vm
	}

	d.TelLimit = ratelimit.New(cfg.API.CommandsPerSec, cfg.API.CommandBurst)
	d.DomeLimit = ratelimit.New(cfg.API.CommandsPerSec, cfg.API.CommandBurst)
	d.FocusLimit = ratelimit.New(cfg.API.CommandsPerSec, cfg.API.CommandBurst)

	fifos, err := openFifos(*fifoDir, d)
	if err != nil {
		log.Fatalf("failed to open command fifos: %v", err)
	}
	defer func() {
		for _, f := range fifos {
			f.Close()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	signal.Ignore(syscall.SIGPIPE)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Journal.Enabled {
		if jdb, err := journal.ReconnectWithRetry(ctx, cfg.Journal); err != nil {
			log.Printf("journal disabled, could not connect: %v", err)
		} else {
			defer jdb.Close()
			if err := jdb.InitSchema(ctx); err != nil {
				log.Printf("journal schema init failed: %v", err)
			} else {
				wireJournal(ctx, d, jdb)
				log.Println("journal connected")
			}
		}
	}

	if cfg.API.Enabled {
		api := httpapi.New(cfg.API, pub, d.Submit)
		go func() {
			if err := api.Run(ctx); err != nil {
				log.Printf("status API stopped: %v", err)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	log.Println("daemon started; press Ctrl+C to stop")
	for {
		select {
		case sig := <-sigChan:
			if sig == syscall.SIGHUP {
				log.Println("SIGHUP received: reloading configuration")
				if newCfg, err := config.LoadAll(*configDir); err != nil {
					log.Printf("config reload failed, keeping previous configuration: %v", err)
				} else {
					d.Cfg = newCfg
					log.Println("configuration reloaded")
				}
				continue
			}
			log.Printf("received signal: %v, shutting down", sig)
			cancel()
			<-done
			log.Println("daemon stopped")
			return
		case <-done:
			log.Println("daemon loop exited on its own")
			return
		}
	}
}

func buildMount(cfg config.Config, virtual bool) *mount.Mount {
	motors := map[teltypes.Axis]*teltypes.MotorInfo{}
	ports := map[teltypes.Axis]motortransport.Port{}

	haMotor := teltypes.NewMotorInfo(teltypes.AxisHA)
	haMotor.Have = cfg.Telescoped.H.Have
	haMotor.NegLim, haMotor.PosLim = cfg.Home.H.NegLim, cfg.Home.H.PosLim
	haMotor.MaxVel, haMotor.MaxAcc, haMotor.SlimAcc = cfg.Telescoped.H.MaxVel, cfg.Telescoped.H.MaxAcc, cfg.Telescoped.H.SlimAcc
	haMotor.StepsPerRev = cfg.Telescoped.H.EStep
	motors[teltypes.AxisHA] = haMotor

	decMotor := teltypes.NewMotorInfo(teltypes.AxisDec)
	decMotor.Have = cfg.Telescoped.D.Have
	decMotor.NegLim, decMotor.PosLim = cfg.Home.D.NegLim, cfg.Home.D.PosLim
	decMotor.MaxVel, decMotor.MaxAcc, decMotor.SlimAcc = cfg.Telescoped.D.MaxVel, cfg.Telescoped.D.MaxAcc, cfg.Telescoped.D.SlimAcc
	decMotor.StepsPerRev = cfg.Telescoped.D.EStep
	motors[teltypes.AxisDec] = decMotor

	haveRotator := cfg.Telescoped.R.Have
	if haveRotator {
		rMotor := teltypes.NewMotorInfo(teltypes.AxisRot)
		rMotor.Have = true
		rMotor.NegLim, rMotor.PosLim = cfg.Home.R.NegLim, cfg.Home.R.PosLim
		motors[teltypes.AxisRot] = rMotor
	}

	if virtual {
		for axis := range motors {
			vm := motortransport.NewVirtualMotor(motors[axis].MaxAcc)
			_ = vm.Open(context.Background())
			ports[axis] = vm
		}
	}

	axes := teltypes.TelAxes{
		HT: cfg.Home.HT, DT: cfg.Home.DT, NP: cfg.Home.NP,
		XP: cfg.Home.XP, YC: cfg.Home.YC, R0: cfg.Home.R0,
		GermEq: cfg.Telescoped.GermEq, ZenFlip: cfg.Telescoped.ZenFlip,
		LargeXP: cfg.Home.LargeXP,
	}

	trackAcc := kinematics.DefaultTrackAcc(haMotor.StepsPerRev)
	if cfg.Telescoped.TrackAcc != 0 {
		trackAcc = cfg.Telescoped.TrackAcc
	}

	m := mount.New(teltypes.Now{}, axes, motors, ports, trackAcc, cfg.Telescoped.TrackInt, cfg.Telescoped.FGuideVel, cfg.Telescoped.CGuideVel)
	m.HaveRotator = haveRotator
	m.StowAlt = degToRad(cfg.Site.StowAlt)
	m.StowAz = degToRad(cfg.Site.StowAz)
	return m
}

func buildDome(cfg config.Config, virtual bool) *dome.Dome {
	geom, err := domegeom.SetGeometry(cfg.Dome.OffsetNorth, cfg.Dome.OffsetEast, cfg.Dome.OffsetHeight, cfg.Dome.OffsetOptical, cfg.Dome.Radius)
	if err != nil {
		log.Printf("dome geometry disabled: %v", err)
	}
	d := dome.New(cfg.Dome, geom)
	if virtual && cfg.Dome.DomeHave {
		vm := motortransport.NewVirtualMotor(1)
		_ = vm.Open(context.Background())
		d.Port = vm
	}
	if virtual && cfg.Dome.ShutterHave {
		vm := motortransport.NewVirtualMotor(1)
		_ = vm.Open(context.Background())
		d.ShutterPort = vm
	}
	return d
}

func buildFocus(cfg config.Config, virtual bool) *focus.Focus {
	motor := teltypes.NewMotorInfo(teltypes.AxisFocus)
	motor.Have = cfg.Focus.Have
	motor.MaxVel, motor.MaxAcc, motor.SlimAcc = cfg.Focus.MaxVel, cfg.Focus.MaxAcc, cfg.Focus.SlimAcc
	motor.StepsPerRev = cfg.Focus.Step

	var port motortransport.Port
	if virtual && cfg.Focus.Have {
		vm := motortransport.NewVirtualMotor(cfg.Focus.MaxAcc)
		_ = vm.Open(context.Background())
		port = vm
	}
	f := focus.New(cfg.Focus, motor, port, cfg.Filter)
	f.TempTable = cfg.FocusTemp
	return f
}

// wireJournal hangs the journal off the mount's observation hooks.
// Every insert runs in its own goroutine so a slow database can never
// stall the poll loop, and a periodic sweeper bounds table growth.
func wireJournal(ctx context.Context, d *daemon.Daemon, jdb *journal.DB) {
	if d.Mount != nil {
		d.Mount.OnTrackingStarted = func(obj teltypes.Obj) {
			go func() {
				opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				defer cancel()
				if _, err := jdb.RecordScan(opCtx, teltypes.Scan{Target: obj}); err != nil {
					log.Printf("journal: record scan: %v", err)
				}
			}()
		}
		d.Mount.OnProfileUpload = func(origin time.Time, samples int, stepMS int64) {
			go func() {
				opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				defer cancel()
				if _, err := jdb.RecordProfileUpload(opCtx, uuid.Nil, "mount", origin, samples, stepMS); err != nil {
					log.Printf("journal: record profile upload: %v", err)
				}
			}()
		}
		d.Mount.OnLimitsFound = func(axis teltypes.Axis, negLim, posLim float64) {
			go func() {
				opCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
				defer cancel()
				if err := jdb.RecordLimitDiscovery(opCtx, axis.String(), negLim, posLim); err != nil {
					log.Printf("journal: record limit discovery: %v", err)
				}
			}()
		}
	}

	go func() {
		ticker := time.NewTicker(6 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				opCtx, cancel := context.WithTimeout(ctx, time.Minute)
				if err := jdb.CleanupOldData(opCtx, 30*24*time.Hour); err != nil {
					log.Printf("journal: cleanup: %v", err)
				}
				cancel()
			}
		}
	}()
}

// openFifos creates the Tel/Dome/Focus command-fifo pairs and wires
// them as the daemon's command sources and response sinks.
func openFifos(dir string, d *daemon.Daemon) ([]*daemon.Fifo, error) {
	tel, err := daemon.OpenFifo(dir, "Tel")
	if err != nil {
		return nil, err
	}
	dm, err := daemon.OpenFifo(dir, "Dome")
	if err != nil {
		tel.Close()
		return nil, err
	}
	fc, err := daemon.OpenFifo(dir, "Focus")
	if err != nil {
		tel.Close()
		dm.Close()
		return nil, err
	}

	d.TelCmds, d.DomeCmds, d.FocusCmds = tel, dm, fc
	d.SetOutputs(tel.WriteResponse, dm.WriteResponse, fc.WriteResponse)
	return []*daemon.Fifo{tel, dm, fc}, nil
}

func degToRad(deg float64) float64 {
	const piOver180 = 3.14159265358979323846 / 180.0
	return deg * piOver180
}
