package scenario

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wageattest/attestation-engine/internal/clock"
	"github.com/wageattest/attestation-engine/internal/registry"
	"github.com/wageattest/attestation-engine/internal/vault"
)

func newGenerator(t *testing.T, seed int64) *Generator {
	t.Helper()
	logger := zap.NewNop()
	c := clock.NewFixed(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))
	v := vault.New(c, logger)
	reg := registry.New(c, v, logger)
	return New(reg, c, seed)
}

func TestGenerate_DeterministicGivenSeed(t *testing.T) {
	cfg := DefaultConfig(2, 10)

	g1 := newGenerator(t, 42)
	s1, err := g1.Generate(cfg)
	require.NoError(t, err)

	g2 := newGenerator(t, 42)
	s2, err := g2.Generate(cfg)
	require.NoError(t, err)

	require.Len(t, s1, len(s2))
	for i := range s1 {
		assert.Equal(t, s1[i].ScenarioID, s2[i].ScenarioID)
		assert.Equal(t, s1[i].ExpectedValid, s2[i].ExpectedValid)
		assert.Equal(t, s1[i].ErrorType, s2[i].ErrorType)
		assert.Equal(t, s1[i].Attestation.WageAmount, s2[i].Attestation.WageAmount)
	}
}

func TestGenerate_EveryScenarioHasRequiredFields(t *testing.T) {
	g := newGenerator(t, 7)
	scenarios, err := g.Generate(DefaultConfig(3, 20))
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, sc := range scenarios {
		assert.NotEmpty(t, sc.ScenarioID)
		assert.NotEmpty(t, sc.EmployerKey)
		assert.NotEmpty(t, sc.Description)
		if !sc.ExpectedValid {
			assert.NotEmpty(t, sc.ErrorType)
		} else {
			assert.Empty(t, sc.ErrorType)
		}
	}
}

func TestGenerate_ObservesAllFiveAdversarialVariants(t *testing.T) {
	g := newGenerator(t, 99)
	scenarios, err := g.Generate(Config{
		MockEmployerCount:    1,
		ScenariosPerEmployer: 200,
		AdversarialFraction:  0.5,
	})
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, sc := range scenarios {
		if !sc.ExpectedValid {
			seen[sc.ErrorType] = true
		}
	}
	for _, v := range allVariants {
		assert.True(t, seen[string(v)], "expected to observe variant %s", v)
	}
}
