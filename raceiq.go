// Package raceiq turns lap timing exports into an annotated lap table: it
// cleans the data, derives per-driver features, predicts lap time from sector
// splits and flags laps that stand out. The annotated table can then be
// browsed with the dashboard.
package raceiq

import "github.com/sirupsen/logrus"

type Logger = logrus.FieldLogger
