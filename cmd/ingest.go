// Copyright 2024
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hako/durafmt"
	"github.com/penny-vault/pvfilings/data"
	"github.com/penny-vault/pvfilings/edgar"
	"github.com/penny-vault/pvfilings/fiscal"
	"github.com/penny-vault/pvfilings/library"
	"github.com/penny-vault/pvfilings/pipeline"
	"github.com/penny-vault/pvfilings/sink"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	tickersFile   string
	filingTypes   []string
	startYear     int
	endYear       int
	numWorkers    int
	outputDir     string
	bucketName    string
	skipDB        bool
	skipUpload    bool
	filingTimeout time.Duration
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest [ticker...]",
	Short: "Download and convert SEC filings for the given tickers",
	Long: `The ingest sub-command downloads filings from EDGAR for each ticker,
extracts their XBRL facts and narrative text, and saves the resulting
artifacts to the configured sink. Tickers may be given as arguments or read
from a CSV file with --tickers-file. Filings that have already been ingested
are skipped.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		tickers := make([]string, 0, len(args))
		for _, arg := range args {
			tickers = append(tickers, data.NormalizeTicker(arg))
		}

		if tickersFile != "" {
			fromFile, err := data.LoadTickerFile(tickersFile)
			if err != nil {
				log.Fatal().Err(err).Str("FileName", tickersFile).Msg("could not load ticker file")
			}
			tickers = append(tickers, fromFile...)
		}

		if len(tickers) == 0 {
			log.Fatal().Msg("no tickers given; pass tickers as arguments or use --tickers-file")
		}

		client, err := edgar.NewClient(viper.GetString("edgar.organization"), viper.GetString("edgar.email"))
		if err != nil {
			log.Fatal().Err(err).Msg("could not create EDGAR client")
		}

		types := make([]data.FilingType, 0, len(filingTypes))
		for _, filingType := range filingTypes {
			switch data.FilingType(filingType) {
			case data.Filing10K, data.Filing10Q, data.Filing20F:
				types = append(types, data.FilingType(filingType))
			default:
				log.Fatal().Str("FilingType", filingType).Msg("unsupported filing type")
			}
		}

		artifactSink, err := buildSink()
		if err != nil {
			log.Fatal().Err(err).Msg("could not create artifact sink")
		}

		var myLibrary *library.Library
		if dbURL := viper.GetString("db.url"); dbURL != "" && !skipDB {
			myLibrary, err = library.NewFromDB(ctx, dbURL)
			if err != nil {
				log.Fatal().Err(err).Msg("could not connect to library")
			}
			defer myLibrary.Close()
		}

		supervisor := &pipeline.Supervisor{
			Orchestrator: &pipeline.Orchestrator{
				Client:        client,
				Registry:      fiscal.NewRegistry(),
				Sink:          artifactSink,
				Library:       myLibrary,
				FilingTypes:   types,
				StartYear:     startYear,
				EndYear:       endYear,
				FilingTimeout: filingTimeout,
			},
			Workers: numWorkers,
			PingURL: viper.GetString("healthchecks.pingurl"),
		}

		report, err := supervisor.Run(ctx, tickers)
		if err != nil {
			log.Fatal().Err(err).Msg("ingest run aborted")
		}

		success, skipped, degraded, failed := report.Counts()
		log.Info().Int("Ingested", success).Int("Skipped", skipped).
			Int("TextOnly", degraded).Int("Failed", failed).
			Str("RunTime", durafmt.Parse(report.FinishedAt.Sub(report.StartedAt)).String()).
			Str("Report", report.ReportPath()).Msg("ingest run complete")
	},
}

func buildSink() (sink.Sink, error) {
	if skipUpload {
		return sink.NewLocal(outputDir)
	}
	if bucketName == "" {
		bucketName = viper.GetString("backblaze.bucket")
	}
	if bucketName != "" {
		return sink.NewBackblaze(bucketName)
	}
	return sink.NewLocal(outputDir)
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&tickersFile, "tickers-file", "", "CSV file of tickers to ingest")
	ingestCmd.Flags().StringSliceVar(&filingTypes, "filing-types", []string{"10-K", "10-Q"}, "form types to ingest")
	ingestCmd.Flags().IntVar(&startYear, "start-year", 0, "earliest filing year to ingest (0 = no limit)")
	ingestCmd.Flags().IntVar(&endYear, "end-year", 0, "latest filing year to ingest (0 = no limit)")
	ingestCmd.Flags().IntVar(&numWorkers, "workers", 3, "number of tickers processed in parallel (1-5)")
	ingestCmd.Flags().StringVar(&outputDir, "output-dir", "filings", "directory artifacts are written to when no bucket is configured")
	ingestCmd.Flags().StringVar(&bucketName, "bucket", "", "backblaze bucket to upload artifacts to")
	ingestCmd.Flags().BoolVar(&skipDB, "skip-db", false, "do not record filing metadata in the database")
	ingestCmd.Flags().BoolVar(&skipUpload, "skip-upload", false, "write artifacts to --output-dir even when a bucket is configured")
	ingestCmd.Flags().DurationVar(&filingTimeout, "filing-timeout", 5*time.Minute, "maximum time spent on a single filing")

	ingestCmd.Flags().String("email", "", "contact email declared to EDGAR (required; may also be set via EDGAR_EMAIL or the config file)")
	if err := viper.BindPFlag("edgar.email", ingestCmd.Flags().Lookup("email")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for email failed")
	}

	ingestCmd.Flags().String("organization", "", "organization name declared to EDGAR alongside --email")
	if err := viper.BindPFlag("edgar.organization", ingestCmd.Flags().Lookup("organization")); err != nil {
		log.Panic().Err(err).Msg("BindPFlag for organization failed")
	}
}
