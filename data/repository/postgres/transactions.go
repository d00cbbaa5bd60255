package postgres

import (
	"context"
	"log/slog"

	"github.com/KotFed0t/liberdade/data/repository"
	"github.com/KotFed0t/liberdade/internal/converter/dbConverter"
	"github.com/KotFed0t/liberdade/internal/model"
	"github.com/KotFed0t/liberdade/internal/model/dbModel"
	"github.com/KotFed0t/liberdade/utils"
	"github.com/google/uuid"
)

const transactionColumns = `transaction_id, instrument_id, kind, quantity, unit_price, total_value, trade_date, note`

func (r *Postgres) InsertTransaction(ctx context.Context, transaction model.Transaction) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertTransaction"
	query := `
		INSERT INTO transactions(` + transactionColumns + `)
		VALUES(:transaction_id, :instrument_id, :kind, :quantity, :unit_price, :total_value, :trade_date, :note)
		`

	slog.Debug("InsertTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("kind", string(transaction.Kind)))
	defer func() {
		if err != nil {
			slog.Error("InsertTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertTransaction completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).NamedExecContext(ctx, query, dbConverter.TransactionToDb(transaction))
	return mapErr(err)
}

func (r *Postgres) GetTransaction(ctx context.Context, transactionID uuid.UUID) (transaction model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetTransaction"
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE transaction_id = $1`

	slog.Debug("GetTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("transactionID", transactionID.String()))
	defer func() {
		if err != nil {
			slog.Error("GetTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTransaction completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	row := dbModel.Transaction{}
	err = r.txOrDb(ctx).GetContext(ctx, &row, query, transactionID)
	if err != nil {
		return model.Transaction{}, mapErr(err)
	}

	return dbConverter.ConvertTransaction(row), nil
}

func (r *Postgres) GetTransactions(ctx context.Context, limit int) (transactions []model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetTransactions"
	query := `SELECT ` + transactionColumns + ` FROM transactions ORDER BY trade_date DESC, created_at DESC LIMIT $1`

	slog.Debug("GetTransactions start", slog.String("rqID", rqID), slog.String("op", op), slog.Int("limit", limit))
	defer func() {
		if err != nil {
			slog.Error("GetTransactions failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetTransactions completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	var rows []dbModel.Transaction
	err = r.txOrDb(ctx).SelectContext(ctx, &rows, query, limit)
	if err != nil {
		return nil, err
	}

	transactions = make([]model.Transaction, 0, len(rows))
	for _, row := range rows {
		transactions = append(transactions, dbConverter.ConvertTransaction(row))
	}

	return transactions, nil
}

func (r *Postgres) UpdateTransaction(ctx context.Context, transaction model.Transaction) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateTransaction"
	query := `
		UPDATE transactions
		SET quantity = :quantity,
			unit_price = :unit_price,
			total_value = :total_value,
			trade_date = :trade_date,
			note = :note
		WHERE transaction_id = :transaction_id
		`

	slog.Debug("UpdateTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("transactionID", transaction.ID.String()))
	defer func() {
		if err != nil {
			slog.Error("UpdateTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateTransaction completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).NamedExecContext(ctx, query, dbConverter.TransactionToDb(transaction))
	if err != nil {
		return err
	}

	return requireAffected(res.RowsAffected())
}

func (r *Postgres) DeleteTransaction(ctx context.Context, transactionID uuid.UUID) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteTransaction"
	query := `DELETE FROM transactions WHERE transaction_id = $1`

	slog.Debug("DeleteTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("transactionID", transactionID.String()))
	defer func() {
		if err != nil {
			slog.Error("DeleteTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteTransaction completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, transactionID)
	if err != nil {
		return err
	}

	return requireAffected(res.RowsAffected())
}

func requireAffected(affected int64, err error) error {
	if err != nil {
		return err
	}
	if affected == 0 {
		return repository.ErrNotFound
	}
	return nil
}
