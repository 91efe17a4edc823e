// Streams a slow sinusoidal joint trajectory to an iiwa bridge, the way
// a motion-control loop would drive the driver: Set from one place,
// RunOne at a fixed tick.
package main

import (
	"math"
	"time"

	"go.viam.com/rdk/logging"

	iiwa "iiwa_arm"
)

const (
	tickRate  = 100 * time.Millisecond
	duration  = 30 * time.Second
	amplitude = 0.3 // radians on A1
)

func main() {
	if err := realMain(); err != nil {
		panic(err)
	}
}

func realMain() error {
	logger := logging.NewLogger("iiwa-stream")

	driver := iiwa.NewDriver(logger)

	params := iiwa.DefaultParams()
	if err := driver.Construct(params); err != nil {
		return err
	}
	defer func() {
		if err := driver.Close(); err != nil {
			logger.Warnf("close: %v", err)
		}
	}()

	if err := driver.SeedLimits(nil); err != nil {
		return err
	}

	logger.Infof("streaming to %s for %s at %s per tick",
		params.RemoteTransportAddress, duration, tickRate)

	start := time.Now()
	ticker := time.NewTicker(tickRate)
	defer ticker.Stop()

	angles := make([]float64, iiwa.NumJoints)
	for range ticker.C {
		elapsed := time.Since(start)
		if elapsed > duration {
			break
		}

		angles[0] = amplitude * math.Sin(2*math.Pi*elapsed.Seconds()/10)
		clamped, _ := iiwa.ClampToLimits(angles)
		if err := driver.Set(clamped, iiwa.JointAngleCommand); err != nil {
			return err
		}

		driver.RunOne()
	}

	stats := driver.Stats()
	logger.Infof("done: sent=%d received=%d dropped=%d",
		stats.AttemptedSends, stats.ReceivedMessages, stats.DroppedSends)
	return nil
}
