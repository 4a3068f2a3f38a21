package validation

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/suite"

	dErrors "xs2acms/pkg/domain-errors"
)

// LimitsSuite pins the boundary behaviour: max passes, max+1 fails.
type LimitsSuite struct {
	suite.Suite
}

func TestLimitsSuite(t *testing.T) {
	suite.Run(t, new(LimitsSuite))
}

func (s *LimitsSuite) TestCheckSliceCount() {
	s.NoError(CheckSliceCount("psuData", MaxPsuDataEntries, MaxPsuDataEntries))
	s.NoError(CheckSliceCount("psuData", 0, MaxPsuDataEntries))

	err := CheckSliceCount("psuData", MaxPsuDataEntries+1, MaxPsuDataEntries)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(err.Error(), "too many psuData")
}

func (s *LimitsSuite) TestCheckStringLength() {
	s.NoError(CheckStringLength("code", strings.Repeat("1", MaxConfirmationCodeLength), MaxConfirmationCodeLength))
	s.NoError(CheckStringLength("code", "", MaxConfirmationCodeLength))

	err := CheckStringLength("code", strings.Repeat("1", MaxConfirmationCodeLength+1), MaxConfirmationCodeLength)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Contains(err.Error(), "code exceeds max length")
}

func (s *LimitsSuite) TestCheckAll() {
	s.NoError(CheckAll())
	s.NoError(CheckAll(nil, nil))

	first := errors.New("first")
	s.Equal(first, CheckAll(nil, first, errors.New("second")))
}
