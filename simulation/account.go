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

	"github.com/rs/zerolog/log"
)

// Account is the owned, per-run portfolio state. One strategy run creates
// one account and no reference survives the run; nothing here is safe for
// concurrent use and nothing needs to be.
//
// Units and cash never go negative after a step: a trade that would overdraw
// is clipped to available inventory or cash and the violation is logged,
// never surfaced.
type Account struct {
	Units       map[string]float64
	Cash        float64
	Contributed float64
	FeesPaid    float64

	Transactions []Transaction
}

// NewAccount seeds an account from value-term holdings priced at the given
// prices. A holding under the riskFreeCode key counts as cash. Seeded value
// counts toward Contributed.
func NewAccount(holdings map[string]float64, cash float64, prices map[string]float64, riskFreeCode string) *Account {
	acct := &Account{
		Units:        make(map[string]float64),
		Transactions: []Transaction{},
	}

	for code, value := range holdings {
		if value <= 0 {
			continue
		}
		if code == riskFreeCode {
			acct.Cash += value
			acct.Contributed += value
			continue
		}
		price, ok := prices[code]
		if !ok || price <= 0 {
			log.Warn().Str("Code", code).Float64("Value", value).Msg("dropping seed holding with no starting price")
			continue
		}
		acct.Units[code] = value / price
		acct.Contributed += value
	}

	if cash > 0 {
		acct.Cash += cash
		acct.Contributed += cash
	}

	return acct
}

// Deposit adds an external contribution to cash
func (a *Account) Deposit(date time.Time, amount float64) {
	if amount <= 0 {
		return
	}
	a.Cash += amount
	a.Contributed += amount
	a.Transactions = append(a.Transactions, newTransaction(date, DepositTransaction, "", 0, 0, amount, 0))
}

// AccrueInterest grows the cash balance by one period's risk-free rate
func (a *Account) AccrueInterest(date time.Time, periodRate float64) {
	if periodRate == 0 || a.Cash <= 0 {
		return
	}
	earned := a.Cash * periodRate
	a.Cash += earned
	a.Transactions = append(a.Transactions, newTransaction(date, InterestTransaction, "", 0, 0, earned, 0))
}

// Buy spends the gross outlay on the coded asset. The buy fee comes out of
// the outlay itself, so cash can never be overdrawn by the fee: net invested
// is outlay/(1+fee). An outlay beyond available cash is clipped and logged.
func (a *Account) Buy(date time.Time, code string, outlay, price, buyFee float64) {
	if outlay <= 0 || price <= 0 {
		return
	}
	if outlay > a.Cash {
		log.Warn().Stack().
			Str("Code", code).
			Float64("Outlay", outlay).
			Float64("Cash", a.Cash).
			Msg("buy outlay exceeds cash; clipping")
		outlay = a.Cash
	}
	if outlay <= 0 {
		return
	}

	net := outlay / (1 + buyFee)
	fee := outlay - net
	units := net / price

	a.Cash -= outlay
	a.Units[code] += units
	a.FeesPaid += fee
	a.Transactions = append(a.Transactions, newTransaction(date, BuyTransaction, code, units, price, outlay, fee))
}

// Sell liquidates up to the given market value of the coded asset and
// returns the net proceeds after the sell fee. A sell beyond the current
// holding is clipped and logged.
func (a *Account) Sell(date time.Time, code string, value, price, sellFee float64) float64 {
	if value <= 0 || price <= 0 {
		return 0
	}
	held := a.Units[code] * price
	if value > held {
		log.Warn().Stack().
			Str("Code", code).
			Float64("Value", value).
			Float64("Held", held).
			Msg("sell exceeds holding; clipping")
		value = held
	}
	if value <= 0 {
		return 0
	}

	units := value / price
	fee := value * sellFee
	proceeds := value - fee

	a.Units[code] -= units
	if a.Units[code] < 0 {
		a.Units[code] = 0
	}
	a.Cash += proceeds
	a.FeesPaid += fee
	a.Transactions = append(a.Transactions, newTransaction(date, SellTransaction, code, units, price, value, fee))
	return proceeds
}

// EquityValue marks the non-cash holdings to the given prices
func (a *Account) EquityValue(prices map[string]float64) float64 {
	total := 0.0
	for code, units := range a.Units {
		total += units * prices[code]
	}
	return total
}

// MarketValue is equity plus cash
func (a *Account) MarketValue(prices map[string]float64) float64 {
	return a.EquityValue(prices) + a.Cash
}
