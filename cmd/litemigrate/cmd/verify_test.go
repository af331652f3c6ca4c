package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dbsmedya/litemigrate/internal/verifier"
)

func TestVerifyCommandStructure(t *testing.T) {
	assert.NotNil(t, verifyCmd)
	assert.Equal(t, "verify", verifyCmd.Use)
	assert.NotEmpty(t, verifyCmd.Short)
	assert.NotEmpty(t, verifyCmd.Long)
	assert.NotNil(t, verifyCmd.RunE)
}

func TestPrintVerifyStats(t *testing.T) {
	var buf bytes.Buffer
	verifyCmd.SetOut(&buf)
	defer verifyCmd.SetOut(nil)

	printVerifyStats(verifyCmd, &verifier.VerifyStats{
		TablesVerified: 3,
		TablesPassed:   1,
		TablesFailed:   2,
		TotalRows:      12,
		Results: []verifier.VerifyResult{
			{Table: "users", SourceCount: 5, TargetCount: 5, Match: true},
			{Table: "orders", SourceCount: 7, TargetCount: 6},
			{Table: "tags", ErrorMessage: "target count failed: relation does not exist"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "✅ users: 5 rows")
	assert.Contains(t, out, "❌ orders: source 7, target 6")
	assert.Contains(t, out, "❌ tags: target count failed")
	assert.Contains(t, out, "Tables verified: 3, passed: 1, failed: 2, rows: 12")
}
