/*
Command quizserver serves the driving-tests quiz API.

It loads the RSA key pair protecting stored passwords, opens the SQLite
database, optionally seeds the quiz catalog from --tests-file and mirrors
scores into Redis when --redis-url is set.

Usage:

	quizserver --public-key public-key.pem --private-key private-key.pem --db-path drive-tests.db

Keys may also be fetched from S3, Vault or IPFS:

	quizserver --public-key ipfs://127.0.0.1:5001/<cid> \
	    --private-key "vault://vault:8200/secret/quiz?field=private_key&token_env=VAULT_TOKEN"
*/
package main
