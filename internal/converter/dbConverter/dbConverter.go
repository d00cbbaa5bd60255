package dbConverter

import (
	"database/sql"

	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/internal/model/dbModel"
	"github.com/google/uuid"
)

func ConvertInstrument(db dbModel.Instrument) model.Instrument {
	inst := model.Instrument{
		ID:                           db.ID,
		Code:                         db.Code,
		Name:                         db.Name,
		Category:                     model.Category(db.Category),
		CurrentPrice:                 db.CurrentPrice,
		LastDistribution:             db.LastDistribution,
		ExpectedMonthlyReturnPercent: db.ExpectedMonthlyReturnPercent,
	}
	if db.UpdatedAt.Valid {
		inst.UpdatedAt = db.UpdatedAt.Time
	}
	return inst
}

func InstrumentToDb(inst model.Instrument) dbModel.Instrument {
	return dbModel.Instrument{
		ID:                           inst.ID,
		Code:                         inst.Code,
		Name:                         inst.Name,
		Category:                     string(inst.Category),
		CurrentPrice:                 inst.CurrentPrice,
		LastDistribution:             inst.LastDistribution,
		ExpectedMonthlyReturnPercent: inst.ExpectedMonthlyReturnPercent,
		UpdatedAt:                    sql.NullTime{Time: inst.UpdatedAt, Valid: !inst.UpdatedAt.IsZero()},
	}
}

func ConvertPosition(db dbModel.Position) model.Position {
	return model.Position{
		InstrumentID: db.InstrumentID,
		Code:         db.Code,
		Category:     model.Category(db.Category),
		Quantity:     db.Quantity,
		AverageCost:  db.AverageCost,
		CurrentPrice: db.CurrentPrice,
		UpdatedAt:    db.UpdatedAt,
	}
}

func PositionToDb(p model.Position) dbModel.Position {
	return dbModel.Position{
		InstrumentID: p.InstrumentID,
		Code:         p.Code,
		Category:     string(p.Category),
		Quantity:     p.Quantity,
		AverageCost:  p.AverageCost,
		CurrentPrice: p.CurrentPrice,
		UpdatedAt:    p.UpdatedAt,
	}
}

func ConvertTransaction(db dbModel.Transaction) model.Transaction {
	tx := model.Transaction{
		ID:         db.ID,
		Kind:       model.TransactionKind(db.Kind),
		Quantity:   db.Quantity,
		UnitPrice:  db.UnitPrice,
		TotalValue: db.TotalValue,
		Date:       db.TradeDate,
		Note:       db.Note,
	}
	if db.InstrumentID.Valid {
		id := db.InstrumentID.UUID
		tx.InstrumentID = &id
	}
	return tx
}

func TransactionToDb(tx model.Transaction) dbModel.Transaction {
	res := dbModel.Transaction{
		ID:         tx.ID,
		Kind:       string(tx.Kind),
		Quantity:   tx.Quantity,
		UnitPrice:  tx.UnitPrice,
		TotalValue: tx.TotalValue,
		TradeDate:  tx.Date,
		Note:       tx.Note,
	}
	if tx.InstrumentID != nil {
		res.InstrumentID = uuid.NullUUID{UUID: *tx.InstrumentID, Valid: true}
	}
	return res
}

func ConvertAllocationTarget(db dbModel.AllocationTarget) model.AllocationTarget {
	return model.AllocationTarget{
		ID:            db.ID,
		Category:      model.Category(db.Category),
		TargetPercent: db.TargetPercent,
		Phase:         db.Phase,
		Active:        db.Active,
	}
}

func ConvertSnapshot(db dbModel.Snapshot) model.NetWorthSnapshot {
	return model.NetWorthSnapshot{
		ID:            db.ID,
		Date:          db.SnapshotDate,
		TotalValue:    db.TotalValue,
		PassiveIncome: db.PassiveIncome,
	}
}

func ConvertHoliday(db dbModel.Holiday) model.Holiday {
	return model.Holiday{
		Date:         db.HolidayDate,
		Name:         db.Name,
		Kind:         db.Kind,
		Level:        db.Level,
		Jurisdiction: db.Jurisdiction,
	}
}
