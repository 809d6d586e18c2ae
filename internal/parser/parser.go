package parser

import "ctr/internal/domain"

// Parser turns failed test results into stored failure details
type Parser interface {
	ParseFailure(result domain.TestResult) domain.TestFailure
}
