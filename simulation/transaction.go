// Copyright 2024-2025
// SPDX-License-Identifier: Apache-2.0
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package simulation

import (
	"time"

	"github.com/google/uuid"
)

const (
	BuyTransaction      = "BUY"
	SellTransaction     = "SELL"
	DepositTransaction  = "DEPOSIT"
	InterestTransaction = "INTEREST"
)

// Transaction records one account mutation. Amount is the gross cash side
// of the trade; Fee is the part of it consumed by the fee schedule.
type Transaction struct {
	ID    uuid.UUID `json:"id"`
	Date  time.Time `json:"date"`
	Kind  string    `json:"kind"`
	Code  string    `json:"code"`
	Units float64   `json:"units"`
	Price float64   `json:"price"`

	Amount float64 `json:"amount"`
	Fee    float64 `json:"fee"`
}

func newTransaction(date time.Time, kind, code string, units, price, amount, fee float64) Transaction {
	return Transaction{
		ID:     uuid.New(),
		Date:   date,
		Kind:   kind,
		Code:   code,
		Units:  units,
		Price:  price,
		Amount: amount,
		Fee:    fee,
	}
}
