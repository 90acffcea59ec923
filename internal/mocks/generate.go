package mocks

//go:generate mockery --name Runner --srcpkg github.com/optimization-lab/regional-report/internal/handler --output ./handler --outpkg handlermocks --with-expecter
