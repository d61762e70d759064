package adapter

import (
	"context"
	"fmt"

	"orderstream/internal/pkg/logger"
	"orderstream/internal/service/order/domain"

	"github.com/google/cel-go/cel"
)

// CelFaultInjector 是 port.FaultInjector 的 CEL 实现。
// 表达式可以使用 attempt、price、quantity、productName、orderId 五个变量，
// 结果为 true 时本次处理返回 domain.ErrSimulatedFailure。
//
// 例如 "attempt == 1" 会让每个第一次失败过的订单在重试时再失败一次。
type CelFaultInjector struct {
	expression string
	program    cel.Program
}

func NewCelFaultInjector(expression string) (*CelFaultInjector, error) {
	env, err := cel.NewEnv(
		cel.Variable("attempt", cel.IntType),
		cel.Variable("price", cel.DoubleType),
		cel.Variable("quantity", cel.IntType),
		cel.Variable("productName", cel.StringType),
		cel.Variable("orderId", cel.StringType),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	ast, iss := env.Compile(expression)
	if iss.Err() != nil {
		return nil, fmt.Errorf("compile fault expression %q: %w", expression, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("fault expression %q must return bool, got %s", expression, ast.OutputType())
	}

	program, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("build fault program: %w", err)
	}
	return &CelFaultInjector{expression: expression, program: program}, nil
}

// Inject 求值失败时只记日志，不注入故障
func (f *CelFaultInjector) Inject(ctx context.Context, order *domain.Order, attempt int) error {
	out, _, err := f.program.Eval(map[string]any{
		"attempt":     int64(attempt),
		"price":       order.Price,
		"quantity":    int64(order.Quantity),
		"productName": order.ProductName,
		"orderId":     order.ID,
	})
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("expression", f.expression).Msg("Fault expression evaluation failed")
		return nil
	}
	if hit, ok := out.Value().(bool); ok && hit {
		return domain.ErrSimulatedFailure
	}
	return nil
}
