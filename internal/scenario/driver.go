// Package scenario drives a seeded transit network through randomized
// bus and passenger activity. It exists to exercise every coordinator
// operation under real contention; the run command uses it as the demo
// workload.
package scenario

import (
	"context"
	"math/rand"
	"os"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/mtlsim/transitsync/internal/coordination"
	"github.com/mtlsim/transitsync/internal/seed"
)

const (
	defaultTrips       = 3
	defaultWaitTimeout = 2 * time.Second
	defaultGateTimeout = 2 * time.Second
)

// Driver runs bus and passenger goroutines against a started Hub.
type Driver struct {
	hub *coordination.Hub
	sd  *seed.Seed
	log *log.Logger
	rng *rand.Rand

	trips       int
	waitTimeout time.Duration
	gateTimeout time.Duration
}

// Option configures a Driver.
type Option func(*Driver)

// WithLogger sets the narration logger.
func WithLogger(lg *log.Logger) Option {
	return func(d *Driver) { d.log = lg }
}

// WithTrips sets how many stop cycles each bus runs.
func WithTrips(n int) Option {
	return func(d *Driver) {
		if n > 0 {
			d.trips = n
		}
	}
}

// WithRandSeed makes the driver's random choices reproducible.
func WithRandSeed(s int64) Option {
	return func(d *Driver) { d.rng = rand.New(rand.NewSource(s)) }
}

// WithWaitTimeout bounds each passenger's wait for a bus.
func WithWaitTimeout(t time.Duration) Option {
	return func(d *Driver) {
		if t > 0 {
			d.waitTimeout = t
		}
	}
}

// New creates a Driver over a Hub that has already been started.
func New(hub *coordination.Hub, sd *seed.Seed, opts ...Option) *Driver {
	d := &Driver{
		hub:         hub,
		sd:          sd,
		log:         log.New(os.Stderr),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		trips:       defaultTrips,
		waitTimeout: defaultWaitTimeout,
		gateTimeout: defaultGateTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run places every passenger at a random stop, then runs one goroutine per
// bus and one per passenger until the buses finish their trips or ctx is
// cancelled. Cancellation trips the hub's halt signal through the Hub's own
// context watch, so blocked waits drain rather than hang.
func (d *Driver) Run(ctx context.Context) error {
	runID := uuid.NewString()[:8]
	lg := d.log.With("run", runID)

	stops := d.sd.StopIDs()
	led := d.hub.Ledger()

	// rng is not safe for concurrent use, so all random choices happen
	// before the goroutines start.
	starts := make(map[string]string, len(d.sd.Passengers))
	for _, pid := range d.sd.PassengerIDs() {
		stop := stops[d.rng.Intn(len(stops))]
		starts[pid] = stop
		led.DepositAt(stop, pid)
	}
	routes := make(map[string][]string, len(d.sd.Buses))
	for _, bid := range d.sd.BusIDs() {
		route := make([]string, len(stops))
		copy(route, stops)
		d.rng.Shuffle(len(route), func(i, j int) { route[i], route[j] = route[j], route[i] })
		routes[bid] = route
	}

	lg.Info("scenario starting",
		"buses", len(d.sd.Buses),
		"passengers", len(d.sd.Passengers),
		"trips", d.trips)

	var wg sync.WaitGroup
	for bid, route := range routes {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.runBus(ctx, lg, bid, route)
		}()
	}
	for pid, stop := range starts {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.runPassenger(ctx, lg, pid, stop)
		}()
	}
	wg.Wait()

	lg.Info("scenario finished")
	return ctx.Err()
}

// runBus cycles the bus through its route: stop admission, arrival
// rendezvous, a boarding phase, an alighting phase, then departure.
func (d *Driver) runBus(ctx context.Context, lg *log.Logger, busID string, route []string) {
	rdv := d.hub.Rendezvous()
	led := d.hub.Ledger()
	gt := d.hub.Gate()
	blg := lg.With("bus", busID)

	for trip := 0; trip < d.trips; trip++ {
		for _, stopID := range route {
			if ctx.Err() != nil {
				return
			}

			if !gt.BusArriveAtStop(busID, stopID, d.gateTimeout) {
				blg.Warn("stop admission timed out", "stop", stopID)
				continue
			}
			rdv.NotifyBusArrival(busID, stopID)
			blg.Info("arrived", "stop", stopID, "trip", trip)

			if rdv.StartAlighting(busID, stopID) {
				if led.AlightPassengers(stopID, busID) {
					blg.Info("passengers alighted", "stop", stopID)
				}
				rdv.CompleteAlighting(busID)
			}
			if rdv.StartBoarding(busID, stopID) {
				if led.BoardPassengers(stopID, busID) {
					blg.Info("passengers boarded", "stop", stopID)
				}
				rdv.CompleteBoarding(busID)
			}

			rdv.NotifyBusDeparture(busID, stopID)
			gt.BusDepartFromStop(busID, stopID)
			rdv.ResetBusFlags(busID)
		}
	}
	blg.Info("route complete")
}

// runPassenger tops up the balance when it cannot cover a fare, then waits
// at the stop for any bus and rides it through one boarding cycle.
func (d *Driver) runPassenger(ctx context.Context, lg *log.Logger, passengerID, stopID string) {
	rdv := d.hub.Rendezvous()
	led := d.hub.Ledger()
	gt := d.hub.Gate()
	plg := lg.With("passenger", passengerID, "stop", stopID)

	if bal, ok := led.Balance(passengerID); ok && bal < d.sd.Fare {
		led.Recharge(passengerID, d.sd.Fare)
		plg.Info("recharged", "amount", d.sd.Fare)
	}

	if ctx.Err() != nil {
		return
	}

	busID, ok := rdv.WaitForBus(passengerID, stopID, "", d.waitTimeout)
	if !ok {
		plg.Warn("no bus arrived in time")
		return
	}
	plg.Info("bus spotted", "bus", busID)

	// The ledger moves the roster during the bus's boarding phase; the
	// seat reservation here is the passenger's own bounded claim.
	if !gt.BoardPassenger(busID, passengerID, d.gateTimeout) {
		plg.Warn("bus full", "bus", busID)
		return
	}
	rdv.WaitForBoardingCompletion(busID, d.waitTimeout)
	gt.AlightPassenger(busID, passengerID)
	plg.Info("trip done", "bus", busID)
}
