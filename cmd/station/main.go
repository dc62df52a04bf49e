package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github/station"
	"github/station/config"
	"github/station/stats"
)

func main() {
	var (
		configPath string
		capacity   int
		pumps      int
		cars       int
	)

	app := &cli.App{
		Name:     "station",
		Version:  "v0.1",
		Compiled: time.Now(),
		Usage:    "simulates a service station with a bounded waiting area",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "load timing settings from `FILE`",
				Value:       "station.toml",
				Destination: &configPath,
			},
			&cli.IntFlag{
				Name:        "capacity",
				Usage:       "waiting area size (1-10), prompted for when absent",
				Destination: &capacity,
			},
			&cli.IntFlag{
				Name:        "pumps",
				Usage:       "number of pumps, prompted for when absent",
				Destination: &pumps,
			},
			&cli.IntFlag{
				Name:        "cars",
				Usage:       "total cars to generate, prompted for when absent",
				Destination: &cars,
			},
		},
		Action: func(c *cli.Context) error {
			return run(configPath, capacity, pumps, cars, c.IsSet("pumps"), c.IsSet("cars"))
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(cli.ErrWriter, err)
		cli.OsExiter(1)
	}
}

func run(configPath string, capacity, pumps, cars int, pumpsSet, carsSet bool) error {
	cfg, err := config.LoadOrDefault(configPath)
	if err != nil {
		return err
	}

	in := bufio.NewScanner(os.Stdin)
	capacity, pumps, cars, err = resolveCounts(in, capacity, pumps, cars, pumpsSet, carsSet)
	if err != nil {
		return err
	}

	st := stats.New()

	sim, err := station.New(station.Options{
		QueueCapacity:   capacity,
		Bays:            pumps,
		Arrivals:        cars,
		ArrivalDelay:    betweenMs(cfg.ArrivalMinMs, cfg.ArrivalMaxMs),
		ServiceDuration: betweenMs(cfg.ServiceMinMs, cfg.ServiceMaxMs),
		PollInterval:    cfg.PollInterval(),
		Log:             log.New(os.Stdout, "", 0),
		Stats:           &st,
	})
	if err != nil {
		return err
	}

	sum, err := sim.Run(context.Background())
	if err != nil {
		return err
	}
	st.Close()

	fmt.Printf("\nServiceStation finished. serviced=%d elapsed=%s p50=%s p95=%s p99=%s\n",
		sum.Serviced, sum.Elapsed.Round(time.Millisecond),
		st.Query(0.5), st.Query(0.95), st.Query(0.99))
	return nil
}

// resolveCounts fills in any count not supplied on the command line. The
// waiting area size is re-prompted until it is within 1..10, whether it came
// from the flag or the prompt; pump and car counts have no enforced range,
// so a value given on the command line is taken as-is and only an absent
// flag is prompted for.
func resolveCounts(in *bufio.Scanner, capacity, pumps, cars int, pumpsSet, carsSet bool) (int, int, int, error) {
	var err error
	for capacity < 1 || capacity > 10 {
		if capacity, err = promptInt(in, "Enter waiting area size (1 - 10): "); err != nil {
			return 0, 0, 0, err
		}
	}
	if !pumpsSet {
		if pumps, err = promptInt(in, "Enter number of pumps: "); err != nil {
			return 0, 0, 0, err
		}
	}
	if !carsSet {
		if cars, err = promptInt(in, "Enter total number of cars to generate: "); err != nil {
			return 0, 0, 0, err
		}
	}
	return capacity, pumps, cars, nil
}

// promptInt reads integers from in until one parses, re-printing the prompt
// after bad input.
func promptInt(in *bufio.Scanner, prompt string) (int, error) {
	for {
		fmt.Print(prompt)
		if !in.Scan() {
			if err := in.Err(); err != nil {
				return 0, err
			}
			return 0, errors.New("stdin closed before a value was entered")
		}
		v, err := strconv.Atoi(strings.TrimSpace(in.Text()))
		if err != nil {
			continue
		}
		return v, nil
	}
}

// betweenMs returns a source of uniformly random durations in [min, max]
// milliseconds.
func betweenMs(min, max int) func() time.Duration {
	return func() time.Duration {
		if max > min {
			return time.Duration(min+rand.Intn(max-min+1)) * time.Millisecond
		}
		return time.Duration(min) * time.Millisecond
	}
}
