package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIncludesCodeAndNode(t *testing.T) {
	err := AtNode(TC001, 7, "expected %s, got %s", "int", "bool")
	assert.Contains(t, err.Error(), "TC001")
	assert.Contains(t, err.Error(), "#7")
	assert.Equal(t, TypeMismatch, err.Kind())
}

func TestRegistryPredicates(t *testing.T) {
	assert.True(t, IsTypeCheckError(TC003))
	assert.False(t, IsTypeCheckError(RVB001))
	assert.True(t, IsRVSDGError(RVB002))
	assert.True(t, IsExtractError(EXT002))
}

func TestIsFatalMatchesRecoverabilityTable(t *testing.T) {
	assert.True(t, IsFatal(TypeMismatch))
	assert.True(t, IsFatal(UndefinedVariable))
	assert.False(t, IsFatal(InfeasibleExtraction))
	assert.False(t, IsFatal(ExtractionTimeout))
	assert.False(t, IsFatal(CycleBudgetExhausted))
	assert.True(t, IsFatal(RewriteEngineFailure))
}
