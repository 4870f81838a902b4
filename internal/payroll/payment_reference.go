package payroll

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type ReferenceGenerator interface {
	Next(payslipID int64, at time.Time) string
}

// snowflakeReferences keeps the PAY<timestamp><payslipId> shape and appends a
// snowflake id so two settlements in the same millisecond never collide.
type snowflakeReferences struct {
	node *snowflake.Node
}

func NewReferenceGenerator(nodeID int64) (ReferenceGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, fmt.Errorf("create snowflake node: %w", err)
	}
	return &snowflakeReferences{node: node}, nil
}

func (g *snowflakeReferences) Next(payslipID int64, at time.Time) string {
	return fmt.Sprintf("PAY%d%d-%s", at.UnixMilli(), payslipID, strings.ToUpper(g.node.Generate().Base36()))
}

// bulkReference derives a per-item reference from a caller reference shared
// by a bulk request.
func bulkReference(base string, payslipID int64) string {
	return fmt.Sprintf("%s-%d", base, payslipID)
}
