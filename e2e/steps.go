package e2e

import (
	"github.com/cucumber/godog"

	"proctor/e2e/steps/common"
	"proctor/e2e/steps/proctoring"
)

// RegisterSteps wires every step package onto the scenario.
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	common.RegisterSteps(ctx, tc)
	proctoring.RegisterSteps(ctx, tc)
}
