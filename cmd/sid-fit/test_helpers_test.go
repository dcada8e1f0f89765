package main

import "github.com/cwbudde/algo-sid/analysis"

func metricsWithScore(score float64) analysis.Metrics {
	return analysis.Metrics{Score: score, Similarity: 1 - score}
}
