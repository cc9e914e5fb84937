package services_test

import (
	"math/big"
	"testing"
	"time"

	"github.com/rxtech-lab/amm-proxy/internal/services"
	"github.com/stretchr/testify/suite"
)

type BondingServiceTestSuite struct {
	suite.Suite
	db      services.DBService
	bonding services.BondingService

	opening time.Time
	now     time.Time
}

func (suite *BondingServiceTestSuite) SetupTest() {
	db, err := services.NewSqliteDBService(":memory:")
	suite.Require().NoError(err)
	suite.db = db
	suite.bonding = services.NewBondingService(db.GetDB())

	suite.opening = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.now = suite.opening.Add(48 * time.Hour)
}

func (suite *BondingServiceTestSuite) TearDownTest() {
	if suite.db != nil {
		suite.db.Close()
	}
}

const bondUser = "0x3333333333333333333333333333333333333333"

func (suite *BondingServiceTestSuite) TestClaimExactlyMatured() {
	// One matured entry covering the claim in full.
	start := suite.opening.Unix()
	suite.Require().NoError(suite.bonding.RecordBond(bondUser, big.NewInt(100), 3600, start))

	err := suite.bonding.Claim(bondUser, big.NewInt(100), suite.opening, suite.now)
	suite.NoError(err)

	entries, err := suite.bonding.ListByUser(bondUser)
	suite.NoError(err)
	suite.Empty(entries)
}

func (suite *BondingServiceTestSuite) TestClaimInsufficientMaturedIsAllOrNothing() {
	// 100 matured, 200 still locked; asking for 150 must change nothing.
	start := suite.opening.Unix()
	suite.Require().NoError(suite.bonding.RecordBond(bondUser, big.NewInt(100), 3600, start))
	suite.Require().NoError(suite.bonding.RecordBond(bondUser, big.NewInt(200), 3600*24*365, start))

	err := suite.bonding.Claim(bondUser, big.NewInt(150), suite.opening, suite.now)
	suite.Require().Error(err)
	suite.Contains(err.Error(), "insufficient claimable: 100 < 150")
	suite.Equal(services.ErrorKindDomain, services.KindOf(err))

	entries, err := suite.bonding.ListByUser(bondUser)
	suite.NoError(err)
	suite.Require().Len(entries, 2)
	suite.Equal("100", entries[0].BondedAmount)
	suite.Equal("200", entries[1].BondedAmount)
}

func (suite *BondingServiceTestSuite) TestClaimSpansEntriesAndReducesLast() {
	// Two matured entries of 100 and 50; claiming 120 exhausts the first and
	// leaves 30 on the second.
	start := suite.opening.Unix()
	suite.Require().NoError(suite.bonding.RecordBond(bondUser, big.NewInt(100), 3600, start))
	suite.Require().NoError(suite.bonding.RecordBond(bondUser, big.NewInt(50), 3600, start))

	err := suite.bonding.Claim(bondUser, big.NewInt(120), suite.opening, suite.now)
	suite.NoError(err)

	entries, err := suite.bonding.ListByUser(bondUser)
	suite.NoError(err)
	suite.Require().Len(entries, 1)
	suite.Equal("30", entries[0].BondedAmount)
}

func (suite *BondingServiceTestSuite) TestClaimWalksInsertionOrder() {
	start := suite.opening.Unix()
	suite.Require().NoError(suite.bonding.RecordBond(bondUser, big.NewInt(10), 3600, start))
	suite.Require().NoError(suite.bonding.RecordBond(bondUser, big.NewInt(20), 3600, start))
	suite.Require().NoError(suite.bonding.RecordBond(bondUser, big.NewInt(30), 3600, start))

	err := suite.bonding.Claim(bondUser, big.NewInt(25), suite.opening, suite.now)
	suite.NoError(err)

	// First entry consumed, second reduced, third untouched.
	entries, err := suite.bonding.ListByUser(bondUser)
	suite.NoError(err)
	suite.Require().Len(entries, 2)
	suite.Equal("5", entries[0].BondedAmount)
	suite.Equal("30", entries[1].BondedAmount)
}

func (suite *BondingServiceTestSuite) TestClaimNothingBondedYet() {
	err := suite.bonding.Claim(bondUser, big.NewInt(10), suite.opening, suite.now)
	suite.Require().Error(err)
	suite.Contains(err.Error(), "no claimable rewards")
	suite.Equal(services.ErrorKindDomain, services.KindOf(err))
}

func (suite *BondingServiceTestSuite) TestClaimAllLockedReportsEarliestUnlock() {
	start := suite.now.Unix()
	suite.Require().NoError(suite.bonding.RecordBond(bondUser, big.NewInt(100), 7200, start))
	suite.Require().NoError(suite.bonding.RecordBond(bondUser, big.NewInt(200), 3600, start))

	err := suite.bonding.Claim(bondUser, big.NewInt(50), suite.opening, suite.now)
	suite.Require().Error(err)
	// The second entry unlocks first and shows up in the diagnostic.
	suite.Contains(err.Error(), "no claimable rewards: earliest claimable 200 unlocks at")
	suite.Contains(err.Error(), suite.now.Add(time.Hour).UTC().Format(time.RFC3339))
}

func (suite *BondingServiceTestSuite) TestZeroStartVestsFromOpeningDate() {
	// Recorded before trading opened: the lock starts at the opening date.
	suite.Require().NoError(suite.bonding.RecordBond(bondUser, big.NewInt(100), 3600, 0))

	locked := suite.opening.Add(30 * time.Minute)
	err := suite.bonding.Claim(bondUser, big.NewInt(100), suite.opening, locked)
	suite.Require().Error(err)
	suite.Contains(err.Error(), "no claimable rewards")

	matured := suite.opening.Add(2 * time.Hour)
	err = suite.bonding.Claim(bondUser, big.NewInt(100), suite.opening, matured)
	suite.NoError(err)
}

func (suite *BondingServiceTestSuite) TestClaimIsScopedPerUser() {
	other := "0x4444444444444444444444444444444444444444"
	start := suite.opening.Unix()
	suite.Require().NoError(suite.bonding.RecordBond(bondUser, big.NewInt(100), 3600, start))
	suite.Require().NoError(suite.bonding.RecordBond(other, big.NewInt(100), 3600, start))

	suite.Require().NoError(suite.bonding.Claim(bondUser, big.NewInt(100), suite.opening, suite.now))

	entries, err := suite.bonding.ListByUser(other)
	suite.NoError(err)
	suite.Require().Len(entries, 1)
	suite.Equal("100", entries[0].BondedAmount)
}

func (suite *BondingServiceTestSuite) TestClaimRejectsNonPositiveAmount() {
	err := suite.bonding.Claim(bondUser, big.NewInt(0), suite.opening, suite.now)
	suite.Require().Error(err)
	suite.Equal(services.ErrorKindValidation, services.KindOf(err))
}

func TestBondingServiceTestSuite(t *testing.T) {
	suite.Run(t, new(BondingServiceTestSuite))
}
