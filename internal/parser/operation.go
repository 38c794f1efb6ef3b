package parser

import (
	"strconv"

	"gclower/grammar"
	"gclower/internal/errors"
	"gclower/internal/ir"
	"gclower/internal/types"
)

func (b *bodyBuilder) operation(op *grammar.Operation, receiver *ir.Variable) ir.Instruction {
	v := b.variable

	switch {
	case op.Nop:
		return &ir.EmptyInstruction{}
	case op.Null:
		return &ir.NullConstantInstruction{Receiver: receiver}
	case op.Const != nil:
		return b.constant(op.Const, receiver)
	case op.String != nil:
		return &ir.StringConstantInstruction{Receiver: receiver, Constant: op.String.Value}
	case op.Class != nil:
		return &ir.ClassConstantInstruction{Receiver: receiver, Constant: valueType(op.Class)}
	case op.Copy != "":
		return &ir.AssignInstruction{Assignee: v(op.Copy), Receiver: receiver}
	case op.Binary != nil:
		operation, ok := ir.ParseBinaryOperation(op.Binary.Operation)
		if !ok {
			b.fail(errors.UnknownOperator("binary operation", op.Binary.Operation, b.pos, ir.BinaryOperationNames))
			return nil
		}
		operand, ok := b.operandType(op.Binary.Operand)
		if !ok {
			return nil
		}
		return &ir.BinaryInstruction{
			Operation:   operation,
			OperandType: operand,
			First:       v(op.Binary.First),
			Second:      v(op.Binary.Second),
			Receiver:    receiver,
		}
	case op.Cast != nil:
		return &ir.CastInstruction{Value: v(op.Cast.Value), TargetType: valueType(op.Cast.Target), Receiver: receiver}
	case op.CastNumber != nil:
		from, ok := b.operandType(op.CastNumber.From)
		if !ok {
			return nil
		}
		to, ok := b.operandType(op.CastNumber.To)
		if !ok {
			return nil
		}
		return &ir.CastNumberInstruction{Value: v(op.CastNumber.Value), SourceType: from, TargetType: to, Receiver: receiver}
	case op.InstanceOf != nil:
		return &ir.IsInstanceInstruction{Value: v(op.InstanceOf.Value), Type: valueType(op.InstanceOf.Type), Receiver: receiver}
	case op.New != "":
		return &ir.ConstructInstruction{Type: op.New, Receiver: receiver}
	case op.NewArray != nil:
		return &ir.ConstructArrayInstruction{ItemType: valueType(op.NewArray.Item), Size: v(op.NewArray.Size), Receiver: receiver}
	case op.Get != nil:
		return &ir.GetFieldInstruction{
			Instance:  v(op.Get.Instance),
			Field:     fieldReference(op.Get.Field),
			FieldType: valueType(op.Get.Type),
			Receiver:  receiver,
		}
	case op.GetStatic != nil:
		return &ir.GetFieldInstruction{
			Field:     fieldReference(op.GetStatic.Field),
			FieldType: valueType(op.GetStatic.Type),
			Receiver:  receiver,
		}
	case op.Put != nil:
		return &ir.PutFieldInstruction{
			Instance:  v(op.Put.Instance),
			Field:     fieldReference(op.Put.Field),
			Value:     v(op.Put.Value),
			FieldType: valueType(op.Put.Type),
		}
	case op.PutStatic != nil:
		return &ir.PutFieldInstruction{
			Field:     fieldReference(op.PutStatic.Field),
			Value:     v(op.PutStatic.Value),
			FieldType: valueType(op.PutStatic.Type),
		}
	case op.Length != "":
		return &ir.ArrayLengthInstruction{Array: v(op.Length), Receiver: receiver}
	case op.Clone != "":
		return &ir.CloneArrayInstruction{Array: v(op.Clone), Receiver: receiver}
	case op.Unwrap != nil:
		element, ok := b.elementType(op.Unwrap.Element)
		if !ok {
			return nil
		}
		return &ir.UnwrapArrayInstruction{Array: v(op.Unwrap.Array), ElementType: element, Receiver: receiver}
	case op.GetElement != nil:
		element, ok := b.elementType(op.GetElement.Element)
		if !ok {
			return nil
		}
		return &ir.GetElementInstruction{
			Array:    v(op.GetElement.Array),
			Index:    v(op.GetElement.Index),
			Type:     element,
			Receiver: receiver,
		}
	case op.PutElement != nil:
		element, ok := b.elementType(op.PutElement.Element)
		if !ok {
			return nil
		}
		return &ir.PutElementInstruction{
			Array: v(op.PutElement.Array),
			Index: v(op.PutElement.Index),
			Value: v(op.PutElement.Value),
			Type:  element,
		}
	case op.Invoke != nil:
		kind := ir.InvokeSpecial
		if op.Invoke.Kind == "virtual" {
			kind = ir.InvokeVirtual
		}
		return &ir.InvokeInstruction{
			Type:      kind,
			Method:    methodReference(op.Invoke.Method.Owner, op.Invoke.Method.Signature),
			Instance:  v(op.Invoke.Instance),
			Arguments: b.variables(op.Invoke.Arguments),
			Receiver:  receiver,
		}
	case op.InitClass != "":
		return &ir.InitClassInstruction{ClassName: op.InitClass}
	case op.NullCheck != "":
		return &ir.NullCheckInstruction{Value: v(op.NullCheck), Receiver: receiver}
	case op.BoundCheck != nil:
		return &ir.BoundCheckInstruction{
			Index:    v(op.BoundCheck.Index),
			Array:    v(op.BoundCheck.Upper),
			Lower:    op.BoundCheck.Lower,
			Receiver: receiver,
		}
	case op.MonitorEnter != "":
		return &ir.MonitorEnterInstruction{ObjectRef: v(op.MonitorEnter)}
	case op.MonitorExit != "":
		return &ir.MonitorExitInstruction{ObjectRef: v(op.MonitorExit)}
	case op.Jump != "":
		return &ir.JumpInstruction{Target: b.block(op.Jump)}
	case op.If != nil:
		cond, ok := ir.ParseBranchingCondition(op.If.Condition)
		if !ok {
			b.fail(errors.UnknownOperator("condition", op.If.Condition, b.pos, ir.BranchingConditionNames))
			return nil
		}
		return &ir.BranchingInstruction{
			Condition:   cond,
			Operand:     v(op.If.Operand),
			Consequent:  b.block(op.If.Then),
			Alternative: b.block(op.If.Else),
		}
	case op.IfCompare != nil:
		cond, ok := ir.ParseBinaryBranchingCondition(op.IfCompare.Condition)
		if !ok {
			b.fail(errors.UnknownOperator("condition", op.IfCompare.Condition, b.pos, ir.BinaryBranchingConditionNames))
			return nil
		}
		return &ir.BinaryBranchingInstruction{
			Condition:   cond,
			First:       v(op.IfCompare.First),
			Second:      v(op.IfCompare.Second),
			Consequent:  b.block(op.IfCompare.Then),
			Alternative: b.block(op.IfCompare.Else),
		}
	case op.Switch != nil:
		sw := &ir.SwitchInstruction{Condition: v(op.Switch.Condition), DefaultTarget: b.block(op.Switch.Default)}
		for _, entry := range op.Switch.Entries {
			sw.Entries = append(sw.Entries, &ir.SwitchTableEntry{
				Condition: int32(entry.Value),
				Target:    b.block(entry.Target),
			})
		}
		return sw
	case op.Return != nil:
		return &ir.ExitInstruction{ValueToReturn: v(op.Return.Value)}
	case op.Throw != "":
		return &ir.RaiseInstruction{Exception: v(op.Throw)}
	}
	return nil
}

func (b *bodyBuilder) constant(c *grammar.Constant, receiver *ir.Variable) ir.Instruction {
	invalid := func(err error) ir.Instruction {
		b.fail(errors.InvalidConstant(c.Kind, c.Value, b.pos, err))
		return nil
	}

	switch c.Kind {
	case "int":
		n, err := strconv.ParseInt(c.Value, 10, 32)
		if err != nil {
			return invalid(err)
		}
		return &ir.IntegerConstantInstruction{Receiver: receiver, Constant: int32(n)}
	case "long":
		n, err := strconv.ParseInt(c.Value, 10, 64)
		if err != nil {
			return invalid(err)
		}
		return &ir.LongConstantInstruction{Receiver: receiver, Constant: n}
	case "float":
		f, err := strconv.ParseFloat(c.Value, 32)
		if err != nil {
			return invalid(err)
		}
		return &ir.FloatConstantInstruction{Receiver: receiver, Constant: float32(f)}
	default:
		f, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			return invalid(err)
		}
		return &ir.DoubleConstantInstruction{Receiver: receiver, Constant: f}
	}
}

func (b *bodyBuilder) operandType(name string) (ir.NumericOperandType, bool) {
	t, ok := ir.ParseNumericOperandType(name)
	if !ok {
		b.fail(errors.UnknownOperator("operand type", name, b.pos, ir.NumericOperandTypeNames))
	}
	return t, ok
}

func (b *bodyBuilder) elementType(name string) (ir.ArrayElementType, bool) {
	t, ok := ir.ParseArrayElementType(name)
	if !ok {
		b.fail(errors.UnknownOperator("element type", name, b.pos, ir.ArrayElementTypeNames))
	}
	return t, ok
}

func fieldReference(f *grammar.FieldRef) types.FieldReference {
	return types.FieldReference{ClassName: f.Owner, FieldName: f.Name}
}
